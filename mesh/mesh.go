// Package mesh turns planar paths into triangle meshes: flat ribbons for
// roads and rails, extruded footprints for areas.
package mesh

import (
	"errors"
	"math"
)

// ErrTooFewPoints is returned when a ribbon has fewer than two points.
var ErrTooFewPoints = errors.New("mesh: too few points")

// Vec3 is a position or direction. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64         { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Normalize returns a unit vector, or the zero vector when a has no length.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Positions []Vec3   `json:"positions"`
	Normals   []Vec3   `json:"normals"`
	Indices   []uint32 `json:"indices"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool { return m == nil || len(m.Indices) == 0 }

// Triangle returns the three corners of triangle i.
func (m *Mesh) Triangle(i int) (Vec3, Vec3, Vec3) {
	return m.Positions[m.Indices[3*i]], m.Positions[m.Indices[3*i+1]], m.Positions[m.Indices[3*i+2]]
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() (min, max Vec3) {
	if len(m.Positions) == 0 {
		return Vec3{}, Vec3{}
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		min = Vec3{math.Min(min.X, p.X), math.Min(min.Y, p.Y), math.Min(min.Z, p.Z)}
		max = Vec3{math.Max(max.X, p.X), math.Max(max.Y, p.Y), math.Max(max.Z, p.Z)}
	}
	return min, max
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d Vec3) {
	for i := range m.Positions {
		m.Positions[i] = m.Positions[i].Add(d)
	}
}

func (m *Mesh) addVertex(p Vec3) uint32 {
	m.Positions = append(m.Positions, p)
	return uint32(len(m.Positions) - 1)
}

func (m *Mesh) addTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// ComputeVertexNormals sets each vertex normal to the normalized sum of the
// face normals of the triangles that use it. Counter-clockwise triangles,
// seen from the side the normal points to.
func (m *Mesh) ComputeVertexNormals() {
	normals := make([]Vec3, len(m.Positions))
	for i := 0; i < m.TriangleCount(); i++ {
		ia, ib, ic := m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2]
		a, b, c := m.Positions[ia], m.Positions[ib], m.Positions[ic]

		// cb x ab, area weighted
		n := c.Sub(b).Cross(a.Sub(b))
		normals[ia] = normals[ia].Add(n)
		normals[ib] = normals[ib].Add(n)
		normals[ic] = normals[ic].Add(n)
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	m.Normals = normals
}
