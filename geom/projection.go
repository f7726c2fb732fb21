package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// ProjectionEarthRadius is the WGS84 equatorial radius used by ToPlanar.
//
// It differs from EarthRadiusMeters. Both values come from separate
// calculations and are kept apart because unifying them shifts every
// projected vertex by about 0.1%.
const ProjectionEarthRadius = 6378137.0

// Planar is a ground-plane position in meters relative to a scene center.
// +X points east and north is -Z.
type Planar struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Sub returns p - q.
func (p Planar) Sub(q Planar) Planar { return Planar{X: p.X - q.X, Z: p.Z - q.Z} }

// Len is the euclidean length of p.
func (p Planar) Len() float64 { return math.Hypot(p.X, p.Z) }

// Finite reports whether both coordinates are finite numbers.
func (p Planar) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// ToPlanar projects point into the local frame centered on center using an
// equirectangular approximation.
func ToPlanar(point, center orb.Point) Planar {
	dLat := toRad(point.Lat() - center.Lat())
	dLon := toRad(point.Lon() - center.Lon())

	return Planar{
		X: dLon * ProjectionEarthRadius * math.Cos(toRad(center.Lat())),
		Z: -dLat * ProjectionEarthRadius,
	}
}

// PlanarBound returns the axis-aligned bounds of pts as an orb.Bound with
// X in the first and Z in the second coordinate.
func PlanarBound(pts []Planar) orb.Bound {
	if len(pts) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: orb.Point{pts[0].X, pts[0].Z}, Max: orb.Point{pts[0].X, pts[0].Z}}
	for _, p := range pts[1:] {
		b = b.Extend(orb.Point{p.X, p.Z})
	}
	return b
}

// DistanceToPath is the shortest distance from p to the polyline path.
func DistanceToPath(p Planar, path []Planar) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Sub(path[0]).Len()
	}
	best := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		a, b := path[i], path[i+1]
		if d := segmentDistance(p, a, b); d < best {
			best = d
		}
	}
	return best
}

// segmentDistance is the distance from p to the segment ab.
func segmentDistance(p, a, b Planar) float64 {
	d, ap := b.Sub(a), p.Sub(a)
	if d.X == 0 && d.Z == 0 {
		return ap.Len()
	}
	t := (ap.X*d.X + ap.Z*d.Z) / (d.X*d.X + d.Z*d.Z)
	switch {
	case t <= 0:
		return ap.Len()
	case t >= 1:
		return p.Sub(b).Len()
	}
	return p.Sub(Planar{X: a.X + t*d.X, Z: a.Z + t*d.Z}).Len()
}
