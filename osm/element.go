package osm

import (
	"github.com/paulmach/orb"
)

type OsmNodeId int64

type OsmWayId int64

type OsmRelationId int64

// ElementType names the three kinds of raw map element.
type ElementType string

const (
	TypeNode     ElementType = "node"
	TypeWay      ElementType = "way"
	TypeRelation ElementType = "relation"
)

// Tags are an element's attributes. A nil map means the element has none.
type Tags map[string]string

// Get returns the value for key, or "" when absent.
func (t Tags) Get(key string) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Has reports whether key is present with a non-empty value.
func (t Tags) Has(key string) bool {
	return t.Get(key) != ""
}

// Element is one of *OsmNode, *OsmWay or *OsmRelation.
type Element interface {
	Type() ElementType
	ElementID() int64
	ElementTags() Tags
	element()
}

type OsmNode struct {
	ID   OsmNodeId
	Lat  float64
	Lon  float64
	Tags Tags
}

func (n *OsmNode) Type() ElementType { return TypeNode }
func (n *OsmNode) ElementID() int64  { return int64(n.ID) }
func (n *OsmNode) ElementTags() Tags { return n.Tags }
func (n *OsmNode) Point() orb.Point  { return orb.Point{n.Lon, n.Lat} }
func (*OsmNode) element()            {}

type OsmWay struct {
	ID    OsmWayId
	Nodes []OsmNodeId
	Tags  Tags
}

func (w *OsmWay) Type() ElementType { return TypeWay }
func (w *OsmWay) ElementID() int64  { return int64(w.ID) }
func (w *OsmWay) ElementTags() Tags { return w.Tags }
func (*OsmWay) element()            {}

// OsmMember is a reference from a relation to another element.
type OsmMember struct {
	Type ElementType
	Ref  int64
	Role string
}

type OsmRelation struct {
	ID      OsmRelationId
	Members []OsmMember
	Tags    Tags
}

func (r *OsmRelation) Type() ElementType { return TypeRelation }
func (r *OsmRelation) ElementID() int64  { return int64(r.ID) }
func (r *OsmRelation) ElementTags() Tags { return r.Tags }
func (*OsmRelation) element()            {}

// Collection is the raw element set returned by a feature source.
type Collection struct {
	Elements []Element
}

// Len returns the number of elements.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Elements)
}

// Add appends elements to the collection.
func (c *Collection) Add(els ...Element) {
	c.Elements = append(c.Elements, els...)
}

// NodeIndex maps node ids to nodes for constant time lookup.
func (c *Collection) NodeIndex() map[OsmNodeId]*OsmNode {
	idx := make(map[OsmNodeId]*OsmNode)
	if c == nil {
		return idx
	}
	for _, el := range c.Elements {
		if n, ok := el.(*OsmNode); ok && n != nil {
			idx[n.ID] = n
		}
	}
	return idx
}

// Ways returns the way elements in collection order.
func (c *Collection) Ways() []*OsmWay {
	var ways []*OsmWay
	if c == nil {
		return ways
	}
	for _, el := range c.Elements {
		if w, ok := el.(*OsmWay); ok && w != nil {
			ways = append(ways, w)
		}
	}
	return ways
}

// Relations returns the relation elements in collection order.
func (c *Collection) Relations() []*OsmRelation {
	var rels []*OsmRelation
	if c == nil {
		return rels
	}
	for _, el := range c.Elements {
		if r, ok := el.(*OsmRelation); ok && r != nil {
			rels = append(rels, r)
		}
	}
	return rels
}
