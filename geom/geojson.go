package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CircleSegments is the number of vertices used to draw the radius circle.
const CircleSegments = 64

// CircleRing approximates the circle of radiusMeters around center.
func CircleRing(center orb.Point, radiusMeters float64, segments int) orb.Ring {
	if segments < 3 {
		segments = 3
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		ring = append(ring, DestinationOffset(center, radiusMeters, 360*float64(i)/float64(segments)))
	}
	return append(ring, ring[0])
}

// CircleFeature is the radius circle as a GeoJSON polygon feature.
func CircleFeature(center orb.Point, radiusMeters float64, segments int) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{CircleRing(center, radiusMeters, segments)})
	f.Properties["kind"] = "radius"
	f.Properties["radius"] = radiusMeters
	f.Properties["stroke"] = "#ff6b35"
	f.Properties["fill"] = "#ff9966"
	f.Properties["fill-opacity"] = 0.25
	return f
}

// OverlayCollection bundles everything the map widget draws for a selection:
// the center marker, the radius circle, the drag handle and the query bbox.
func OverlayCollection(center orb.Point, radiusMeters float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	marker := geojson.NewFeature(center)
	marker.Properties["kind"] = "center"
	fc.Append(marker)

	fc.Append(CircleFeature(center, radiusMeters, CircleSegments))

	handle := geojson.NewFeature(RadiusHandle(center, radiusMeters))
	handle.Properties["kind"] = "handle"
	handle.Properties["draggable"] = true
	fc.Append(handle)

	bbox := geojson.NewFeature(BoundingBox(center, radiusMeters).ToPolygon())
	bbox.Properties["kind"] = "bbox"
	fc.Append(bbox)

	return fc
}
