package geom

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// RTreeItem represents an item stored in the RTree
type RTreeItem struct {
	ID int64
}

// RTree wraps tidwall/rtree for spatial indexing of ways and scene objects
type RTree struct {
	tree *rtree.RTreeG[RTreeItem]
}

// NewRTree creates a new RTree
func NewRTree() *RTree {
	return &RTree{
		tree: &rtree.RTreeG[RTreeItem]{},
	}
}

// Insert adds an item to the RTree with the given bounding box
func (r *RTree) Insert(id int64, minX, minY, maxX, maxY float64) {
	r.tree.Insert(
		[2]float64{minX, minY},
		[2]float64{maxX, maxY},
		RTreeItem{ID: id},
	)
}

// InsertBound adds an item using an orb.Bound
func (r *RTree) InsertBound(id int64, b orb.Bound) {
	r.Insert(id, b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Search returns all item IDs whose bounding boxes intersect with the query bbox
func (r *RTree) Search(minX, minY, maxX, maxY float64) []int64 {
	result := make([]int64, 0)
	r.tree.Search(
		[2]float64{minX, minY},
		[2]float64{maxX, maxY},
		func(min, max [2]float64, item RTreeItem) bool {
			result = append(result, item.ID)
			return true // continue searching
		},
	)
	return result
}

// SearchBound is Search with an orb.Bound
func (r *RTree) SearchBound(b orb.Bound) []int64 {
	return r.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Size returns the number of items in the RTree
func (r *RTree) Size() int {
	return r.tree.Len()
}
