package geom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestToPlanarCenterIsOrigin(t *testing.T) {
	for _, c := range []orb.Point{{0, 0}, {28.9784, 41.0082}, {-122.4, 37.8}, {151.2, -33.9}, {10, 78}} {
		p := ToPlanar(c, c)
		assert.Equal(t, 0.0, p.X)
		assert.Equal(t, 0.0, p.Z)
	}
}

func TestToPlanarAxes(t *testing.T) {
	c := orb.Point{28.9784, 41.0082}

	north := ToPlanar(DestinationOffset(c, 200, 0), c)
	assert.Less(t, north.Z, 0.0)
	assert.InDelta(t, 0, north.X, 1e-9)

	east := ToPlanar(DestinationOffset(c, 200, 90), c)
	assert.Greater(t, east.X, 0.0)
	assert.InDelta(t, 0, east.Z, 1e-9)
}

func TestToPlanarApproximatesHaversine(t *testing.T) {
	center := orb.Point{28.9784, 41.0082}
	for _, dist := range []float64{10, 100, 500, 999} {
		for _, bearing := range []float64{0, 33, 90, 145, 210, 300} {
			a := DestinationOffset(center, dist/3, bearing+90)
			b := DestinationOffset(center, dist, bearing)

			planar := ToPlanar(b, center).Sub(ToPlanar(a, center)).Len()
			geodesic := HaversineDistance(a, b)

			// the two earth radii differ by ~0.11% and the projection error grows with offset
			tolerance := 0.5 + geodesic*0.005
			assert.InDelta(t, geodesic, planar, tolerance, "dist=%v bearing=%v", dist, bearing)
		}
	}
}

func TestDistanceToPath(t *testing.T) {
	path := []Planar{{0, 0}, {10, 0}, {10, 10}}
	assert.InDelta(t, 2, DistanceToPath(Planar{5, 2}, path), 1e-9)
	assert.InDelta(t, 3, DistanceToPath(Planar{13, 5}, path), 1e-9)
	assert.InDelta(t, 5, DistanceToPath(Planar{3, 4}, []Planar{{0, 0}}), 1e-9)
}

func TestPlanarBound(t *testing.T) {
	b := PlanarBound([]Planar{{1, 5}, {-3, 2}, {4, -1}})
	assert.Equal(t, orb.Point{-3, -1}, b.Min)
	assert.Equal(t, orb.Point{4, 5}, b.Max)
}
