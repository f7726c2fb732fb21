package osm

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"kuanb/gosm-scene/geom"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
	"go.uber.org/zap"
)

// FileSource serves features from a local .osm.pbf extract instead of a
// remote API. Way bounds are kept in an RTree so each Fetch only touches the
// ways inside the requested box.
type FileSource struct {
	nodes     map[OsmNodeId]*OsmNode
	ways      map[OsmWayId]*OsmWay
	relations []*OsmRelation
	// wayRelations lists, per way, the relations that reference it
	wayRelations map[OsmWayId][]*OsmRelation
	rtree        *geom.RTree
}

// LoadOsmFile decodes a PBF extract into a FileSource.
func LoadOsmFile(filePath string, log *zap.Logger) (*FileSource, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	coll, err := DecodePBF(f, log)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return NewFileSource(coll, log), nil
}

// DecodePBF reads every node, way and relation of a PBF stream.
func DecodePBF(r io.Reader, log *zap.Logger) (*Collection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := osmpbf.NewDecoder(r)

	// use more memory from the start, it is faster
	d.SetBufferSize(osmpbf.MaxBlobSize)

	// start decoding with several goroutines, it is faster
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, err
	}

	var nc, wc, rc uint64
	coll := &Collection{}
	for {
		v, err := d.Decode()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case *osmpbf.Node:
			coll.Add(&OsmNode{
				ID:   OsmNodeId(v.ID),
				Lat:  v.Lat,
				Lon:  v.Lon,
				Tags: nonEmpty(v.Tags),
			})
			nc++
		case *osmpbf.Way:
			nodeIDs := make([]OsmNodeId, len(v.NodeIDs))
			for i, id := range v.NodeIDs {
				nodeIDs[i] = OsmNodeId(id)
			}
			coll.Add(&OsmWay{
				ID:    OsmWayId(v.ID),
				Nodes: nodeIDs,
				Tags:  nonEmpty(v.Tags),
			})
			wc++
		case *osmpbf.Relation:
			members := make([]OsmMember, len(v.Members))
			for i, m := range v.Members {
				members[i] = OsmMember{Type: memberType(m.Type), Ref: m.ID, Role: m.Role}
			}
			coll.Add(&OsmRelation{
				ID:      OsmRelationId(v.ID),
				Members: members,
				Tags:    nonEmpty(v.Tags),
			})
			rc++
		default:
			return nil, fmt.Errorf("unknown type %T", v)
		}
	}
	log.Info("decoded pbf", zap.Uint64("nodes", nc), zap.Uint64("ways", wc), zap.Uint64("relations", rc))
	return coll, nil
}

// NewFileSource keeps the renderable part of coll and indexes it.
func NewFileSource(coll *Collection, log *zap.Logger) *FileSource {
	if log == nil {
		log = zap.NewNop()
	}
	inherited := InheritedTypes(coll)
	nodes := coll.NodeIndex()

	// Remove ways that would be dropped by the classifier anyway
	ways := make(map[OsmWayId]*OsmWay)
	usedNodeIDs := make(map[OsmNodeId]struct{})
	numWaysBefore := 0
	for _, way := range coll.Ways() {
		numWaysBefore++
		if Classify(way.Tags, inherited[way.ID]).Type == None {
			continue
		}
		ways[way.ID] = way
		for _, nid := range way.Nodes {
			usedNodeIDs[nid] = struct{}{}
		}
	}
	log.Info("filtered ways", zap.Int("dropped", numWaysBefore-len(ways)), zap.Int("kept", len(ways)))

	// Remove any nodes not used in the remaining ways
	filteredNodes := make(map[OsmNodeId]*OsmNode, len(usedNodeIDs))
	for id, node := range nodes {
		if _, ok := usedNodeIDs[id]; ok {
			filteredNodes[id] = node
		}
	}
	log.Info("filtered nodes", zap.Int("dropped", len(nodes)-len(filteredNodes)), zap.Int("kept", len(filteredNodes)))

	src := &FileSource{
		nodes:        filteredNodes,
		ways:         ways,
		wayRelations: make(map[OsmWayId][]*OsmRelation),
		rtree:        geom.NewRTree(),
	}

	for _, rel := range coll.Relations() {
		if RelationType(rel.Tags) == None {
			continue
		}
		src.relations = append(src.relations, rel)
		for _, m := range rel.Members {
			if m.Type == TypeWay {
				src.wayRelations[OsmWayId(m.Ref)] = append(src.wayRelations[OsmWayId(m.Ref)], rel)
			}
		}
	}

	// Build RTree spatial index for ways
	for id, way := range ways {
		bound, ok := src.wayBound(way)
		if !ok {
			continue
		}
		src.rtree.InsertBound(int64(id), bound)
	}
	log.Info("built rtree", zap.Int("entries", src.rtree.Size()))

	return src
}

// Fetch returns the ways intersecting bound together with their nodes and
// the typed relations that reference them.
func (s *FileSource) Fetch(ctx context.Context, bound orb.Bound) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coll := &Collection{}
	seenNodes := make(map[OsmNodeId]struct{})
	seenRels := make(map[OsmRelationId]struct{})
	var nodes []Element

	for _, id := range s.rtree.SearchBound(bound) {
		way := s.ways[OsmWayId(id)]
		if way == nil {
			continue
		}
		coll.Add(way)
		for _, rel := range s.wayRelations[way.ID] {
			seenRels[rel.ID] = struct{}{}
		}
		for _, nid := range way.Nodes {
			if _, ok := seenNodes[nid]; ok {
				continue
			}
			if n, ok := s.nodes[nid]; ok {
				seenNodes[nid] = struct{}{}
				nodes = append(nodes, n)
			}
		}
	}
	// relations keep file order so the last typed relation wins as in NewFileSource
	for _, rel := range s.relations {
		if _, ok := seenRels[rel.ID]; ok {
			coll.Add(rel)
		}
	}
	coll.Add(nodes...)
	return coll, nil
}

// Size returns the number of indexed ways.
func (s *FileSource) Size() int {
	return s.rtree.Size()
}

// wayBound calculates the lon/lat bounding box of the resolvable way nodes.
func (s *FileSource) wayBound(way *OsmWay) (orb.Bound, bool) {
	var bound orb.Bound
	found := false
	for _, nid := range way.Nodes {
		node, ok := s.nodes[nid]
		if !ok {
			continue
		}
		if !found {
			bound = node.Point().Bound()
			found = true
			continue
		}
		bound = bound.Extend(node.Point())
	}
	return bound, found
}

func memberType(t osmpbf.MemberType) ElementType {
	switch t {
	case osmpbf.NodeType:
		return TypeNode
	case osmpbf.WayType:
		return TypeWay
	default:
		return TypeRelation
	}
}

func nonEmpty(tags map[string]string) Tags {
	if len(tags) == 0 {
		return nil
	}
	return Tags(tags)
}
