package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusMeters is used by the great-circle and destination helpers.
const EarthRadiusMeters = 6371000.0

const (
	MinRadiusMeters = 100.0
	MaxRadiusMeters = 3000.0
)

// handleBearing places the radius drag handle on the top-right of the circle
const handleBearing = 45.0

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// GreatCircleDistance calculates the distance between two points in meters using the Haversine formula
func GreatCircleDistance(lon1, lat1, lon2, lat2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	lat1Rad := toRad(lat1)
	lat2Rad := toRad(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// HaversineDistance is GreatCircleDistance for orb points.
func HaversineDistance(a, b orb.Point) float64 {
	return GreatCircleDistance(a.Lon(), a.Lat(), b.Lon(), b.Lat())
}

// DestinationOffset returns the point radiusMeters away from center along
// bearingDegrees (0 = north, clockwise), using an equirectangular approximation.
func DestinationOffset(center orb.Point, radiusMeters, bearingDegrees float64) orb.Point {
	delta := (radiusMeters / EarthRadiusMeters) * (180 / math.Pi)
	b := toRad(bearingDegrees)

	dLat := delta * math.Cos(b)
	dLon := delta * math.Sin(b) / math.Cos(toRad(center.Lat()))

	return orb.Point{center.Lon() + dLon, center.Lat() + dLat}
}

// BoundingBox bounds the circle of radiusMeters around center using the
// destination offsets due north, east, south and west.
func BoundingBox(center orb.Point, radiusMeters float64) orb.Bound {
	north := DestinationOffset(center, radiusMeters, 0)
	east := DestinationOffset(center, radiusMeters, 90)
	south := DestinationOffset(center, radiusMeters, 180)
	west := DestinationOffset(center, radiusMeters, 270)

	return orb.Bound{
		Min: orb.Point{west.Lon(), south.Lat()},
		Max: orb.Point{east.Lon(), north.Lat()},
	}
}

// ClampRadius keeps a radius inside [MinRadiusMeters, MaxRadiusMeters].
func ClampRadius(r float64) float64 {
	if math.IsNaN(r) || r < MinRadiusMeters {
		return MinRadiusMeters
	}
	if r > MaxRadiusMeters {
		return MaxRadiusMeters
	}
	return r
}

// RadiusHandle is the position of the draggable handle on the circle edge.
func RadiusHandle(center orb.Point, radiusMeters float64) orb.Point {
	return DestinationOffset(center, radiusMeters, handleBearing)
}

// RadiusFromHandle converts a dragged handle position back into a radius,
// rounded to whole meters and clamped.
func RadiusFromHandle(center, handle orb.Point) float64 {
	return ClampRadius(math.Round(HaversineDistance(center, handle)))
}
