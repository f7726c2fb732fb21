package mesh

import (
	"kuanb/gosm-scene/geom"
)

// Ribbon builds a flat strip of the given width that follows path at height
// elevation. Each path point contributes a left and a right vertex, offset
// perpendicular to the local segment direction; each segment becomes a quad.
func Ribbon(path []geom.Planar, width, elevation float64) (*Mesh, error) {
	if len(path) < 2 {
		return nil, ErrTooFewPoints
	}
	halfWidth := width / 2

	m := &Mesh{
		Positions: make([]Vec3, 0, 2*len(path)),
		Indices:   make([]uint32, 0, 6*(len(path)-1)),
	}

	for i, curr := range path {
		// forward difference, backward at the final point
		var dir geom.Planar
		if i < len(path)-1 {
			dir = path[i+1].Sub(curr)
		} else {
			dir = curr.Sub(path[i-1])
		}
		d := Vec3{X: dir.X, Z: dir.Z}.Normalize()

		// perpendicular in the ground plane
		perp := Vec3{X: -d.Z, Z: d.X}

		c := Vec3{X: curr.X, Y: elevation, Z: curr.Z}
		m.addVertex(c.Add(perp.Scale(halfWidth)))
		m.addVertex(c.Add(perp.Scale(-halfWidth)))
	}

	for i := 0; i < len(path)-1; i++ {
		base := uint32(i * 2)
		// wound so the strip faces +Y
		m.addTriangle(base, base+2, base+1)
		m.addTriangle(base+1, base+2, base+3)
	}

	m.ComputeVertexNormals()
	return m, nil
}
