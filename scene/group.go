// Package scene assembles classified map features into a group of meshes
// ready for a renderer.
package scene

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"kuanb/gosm-scene/geom"
	"kuanb/gosm-scene/mesh"
	"kuanb/gosm-scene/osm"
)

// Object is one rendered way.
type Object struct {
	WayID    osm.OsmWayId        `json:"way_id"`
	Type     osm.SemanticType    `json:"-"`
	Kind     string              `json:"kind"`
	Subtype  osm.BuildingSubtype `json:"-"`
	Variant  string              `json:"subtype,omitempty"`
	Mesh     *mesh.Mesh          `json:"mesh"`
	Material mesh.Material       `json:"material"`
	// Bound is the footprint extent in the planar frame, X in [0] and Z in [1].
	Bound orb.Bound `json:"bound"`

	path []geom.Planar
}

// Candidate is an object near a picked point.
type Candidate struct {
	WayID    osm.OsmWayId `json:"way_id"`
	Kind     string       `json:"kind"`
	Distance float64      `json:"distance"` // meters in the planar frame
}

// Group owns the objects of one scene. Assembly clears and refills it.
type Group struct {
	Objects []Object `json:"objects"`

	index *geom.RTree
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{index: geom.NewRTree()}
}

// Reset drops every object.
func (g *Group) Reset() {
	g.Objects = g.Objects[:0]
	g.index = geom.NewRTree()
}

// Len returns the number of objects.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Objects)
}

// Add appends obj and indexes its footprint.
func (g *Group) Add(obj Object) {
	if g.index == nil {
		g.index = geom.NewRTree()
	}
	g.index.InsertBound(int64(len(g.Objects)), obj.Bound)
	g.Objects = append(g.Objects, obj)
}

// Pick returns the objects within radius meters of the planar point (x, z),
// nearest first. Points inside an area footprint are at distance zero.
func (g *Group) Pick(x, z, radius float64) []Candidate {
	candidates := make([]Candidate, 0)
	if g.Len() == 0 || g.index == nil {
		return candidates
	}

	p := geom.Planar{X: x, Z: z}
	for _, id := range g.index.Search(x-radius, z-radius, x+radius, z+radius) {
		obj := &g.Objects[id]
		dist := obj.distanceTo(p)
		if dist >= 0 && dist <= radius {
			candidates = append(candidates, Candidate{WayID: obj.WayID, Kind: obj.Kind, Distance: dist})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance == candidates[j].Distance {
			return candidates[i].WayID < candidates[j].WayID
		}
		return candidates[i].Distance < candidates[j].Distance
	})
	return candidates
}

// Stats counts objects by kind.
func (g *Group) Stats() map[string]int {
	stats := make(map[string]int)
	if g == nil {
		return stats
	}
	for _, obj := range g.Objects {
		stats[obj.Kind]++
	}
	return stats
}

func (o *Object) distanceTo(p geom.Planar) float64 {
	if len(o.path) == 0 {
		return -1
	}
	if o.Type.IsLinear() {
		return geom.DistanceToPath(p, o.path)
	}

	ring := make(orb.Ring, 0, len(o.path)+1)
	for _, q := range o.path {
		ring = append(ring, orb.Point{q.X, q.Z})
	}
	ring = append(ring, ring[0])
	if planar.RingContains(ring, orb.Point{p.X, p.Z}) {
		return 0
	}
	outline := append(append([]geom.Planar{}, o.path...), o.path[0])
	return geom.DistanceToPath(p, outline)
}
