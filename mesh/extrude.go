package mesh

import (
	"github.com/paulmach/orb"

	"kuanb/gosm-scene/geom"
)

// Extrude lofts the footprint straight up by height and shifts it so the
// bottom cap sits at offset. Footprints with fewer than three distinct points
// or no area give an empty mesh.
func Extrude(footprint []geom.Planar, height, offset float64) *Mesh {
	ring := footprintRing(footprint)
	if len(ring) < 3 {
		return &Mesh{}
	}

	switch closed(ring).Orientation() {
	case orb.CW:
		ring.Reverse()
	case 0:
		return &Mesh{}
	}

	n := len(ring)
	m := &Mesh{
		Positions: make([]Vec3, 0, 2*n+4*n),
		Indices:   make([]uint32, 0, 6*(n-2)+6*n),
	}

	bottom, top := offset, offset+height
	at := func(i int, y float64) Vec3 {
		// ring is (x, -z), see footprintRing
		return Vec3{X: ring[i][0], Y: y, Z: -ring[i][1]}
	}

	tris := triangulate(ring)

	// caps
	topBase := uint32(len(m.Positions))
	for i := range ring {
		m.addVertex(at(i, top))
	}
	for _, t := range tris {
		m.addTriangle(topBase+uint32(t[0]), topBase+uint32(t[1]), topBase+uint32(t[2]))
	}
	bottomBase := uint32(len(m.Positions))
	for i := range ring {
		m.addVertex(at(i, bottom))
	}
	for _, t := range tris {
		m.addTriangle(bottomBase+uint32(t[0]), bottomBase+uint32(t[2]), bottomBase+uint32(t[1]))
	}

	// walls get their own vertices so the edges stay sharp
	for i := range ring {
		j := (i + 1) % n
		b0 := m.addVertex(at(i, bottom))
		b1 := m.addVertex(at(j, bottom))
		t1 := m.addVertex(at(j, top))
		t0 := m.addVertex(at(i, top))
		m.addTriangle(b0, b1, t1)
		m.addTriangle(b0, t1, t0)
	}

	m.ComputeVertexNormals()
	return m
}

// footprintRing converts planar points into a ring in map orientation
// (x east, y north), dropping a closing duplicate.
func footprintRing(pts []geom.Planar) orb.Ring {
	ring := make(orb.Ring, 0, len(pts))
	for _, p := range pts {
		ring = append(ring, orb.Point{p.X, -p.Z})
	}
	if len(ring) > 1 && ring[0].Equal(ring[len(ring)-1]) {
		ring = ring[:len(ring)-1]
	}
	return ring
}

func closed(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

// triangulate ear-clips a counter-clockwise ring. Self-intersecting input that
// runs out of ears has its remainder fanned from the first vertex.
func triangulate(ring orb.Ring) [][3]int {
	idx := make([]int, len(ring))
	for i := range idx {
		idx[i] = i
	}

	tris := make([][3]int, 0, len(ring)-2)
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isEar(ring, idx, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			for k := 1; k+1 < len(idx); k++ {
				tris = append(tris, [3]int{idx[0], idx[k], idx[k+1]})
			}
			return tris
		}
	}
	return append(tris, [3]int{idx[0], idx[1], idx[2]})
}

func isEar(ring orb.Ring, idx []int, prev, cur, next int) bool {
	a, b, c := ring[prev], ring[cur], ring[next]
	if cross(a, b, c) <= 0 {
		return false
	}
	for _, k := range idx {
		if k == prev || k == cur || k == next {
			continue
		}
		if inTriangle(ring[k], a, b, c) {
			return false
		}
	}
	return true
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func inTriangle(p, a, b, c orb.Point) bool {
	return cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0
}
