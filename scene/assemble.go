package scene

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"kuanb/gosm-scene/geom"
	"kuanb/gosm-scene/logger"
	"kuanb/gosm-scene/mesh"
	"kuanb/gosm-scene/metrics"
	"kuanb/gosm-scene/osm"
)

// Reasons a way is left out of the scene.
const (
	DropUnclassified = "unclassified"
	DropHidden       = "layer_hidden"
	DropTooFewPoints = "too_few_points"
	DropEmptyMesh    = "empty_mesh"
	DropFailed       = "failed"
)

// Layers toggles the optional area layers. Roads and rails are always built.
type Layers struct {
	Buildings bool `json:"buildings"`
	Water     bool `json:"water"`
	Parks     bool `json:"parks"`
}

// AllLayers enables every layer.
func AllLayers() Layers {
	return Layers{Buildings: true, Water: true, Parks: true}
}

// Allows reports whether features of type t are built.
func (l Layers) Allows(t osm.SemanticType) bool {
	switch t {
	case osm.Building:
		return l.Buildings
	case osm.Water:
		return l.Water
	case osm.Park:
		return l.Parks
	}
	return true
}

// Report summarizes one assembly pass.
type Report struct {
	Built   int            `json:"built"`
	Dropped map[string]int `json:"dropped"`
}

// Assembler turns a raw feature collection into a scene group.
type Assembler struct {
	Palette mesh.Palette
	Layers  Layers
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// NewAssembler returns an assembler with the default palette and all layers on.
func NewAssembler(log *zap.Logger, m *metrics.Collector) *Assembler {
	return &Assembler{
		Palette: mesh.DefaultPalette(),
		Layers:  AllLayers(),
		Logger:  logger.OrNop(log),
		Metrics: m,
	}
}

// Assemble clears group and rebuilds it from data, projected around center.
// A nil group is allocated. A way that fails is counted and skipped.
func (a *Assembler) Assemble(group *Group, data *osm.Collection, center orb.Point) (*Group, Report) {
	start := time.Now()
	log := logger.OrNop(a.Logger)

	if group == nil {
		group = NewGroup()
	} else {
		group.Reset()
	}
	report := Report{Dropped: make(map[string]int)}

	// Step 1: node lookup
	nodes := data.NodeIndex()

	// Step 2: types inherited through relations
	inherited := osm.InheritedTypes(data)

	// Step 3: one object per way
	for _, way := range data.Ways() {
		obj, reason, err := a.buildWay(way, nodes, inherited[way.ID], center)
		if err != nil {
			log.Warn("skipping way", zap.Int64("way_id", int64(way.ID)), zap.Error(err))
		}
		if reason != "" {
			report.Dropped[reason]++
			continue
		}
		group.Add(obj)
	}

	report.Built = group.Len()
	a.Metrics.ObserveScene(time.Since(start), group.Stats(), report.Dropped)
	log.Debug("scene assembled",
		zap.Int("objects", report.Built),
		zap.Any("dropped", report.Dropped),
		zap.Duration("duration", time.Since(start)))

	return group, report
}

func (a *Assembler) buildWay(way *osm.OsmWay, nodes map[osm.OsmNodeId]*osm.OsmNode, inherited osm.SemanticType, center orb.Point) (obj Object, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, reason, err = Object{}, DropFailed, fmt.Errorf("way %d: %v", way.ID, r)
		}
	}()

	class := osm.Classify(way.Tags, inherited)
	if class.Type == osm.None {
		return Object{}, DropUnclassified, nil
	}
	if !a.Layers.Allows(class.Type) {
		return Object{}, DropHidden, nil
	}

	// unresolved node ids are skipped one by one
	path := make([]geom.Planar, 0, len(way.Nodes))
	for _, id := range way.Nodes {
		n, ok := nodes[id]
		if !ok {
			continue
		}
		p := geom.ToPlanar(n.Point(), center)
		if !p.Finite() {
			return Object{}, DropFailed, fmt.Errorf("way %d: node %d has non-finite coordinates", way.ID, id)
		}
		path = append(path, p)
	}

	var m *mesh.Mesh
	if class.Type.IsLinear() {
		if len(path) < 2 {
			return Object{}, DropTooFewPoints, nil
		}
		m, err = mesh.Ribbon(path, class.Width, mesh.LinearElevation(way.Tags))
		if err != nil {
			return Object{}, DropFailed, fmt.Errorf("way %d: %w", way.ID, err)
		}
	} else {
		if len(path) == 0 {
			return Object{}, DropTooFewPoints, nil
		}
		height, offset := mesh.AreaParams(class.Type, class.Subtype, way.Tags)
		m = mesh.Extrude(path, height, offset)
	}
	if m.Empty() {
		return Object{}, DropEmptyMesh, nil
	}

	obj = Object{
		WayID:    way.ID,
		Type:     class.Type,
		Kind:     class.Type.String(),
		Mesh:     m,
		Material: a.Palette.For(class.Type, class.Subtype),
		Bound:    geom.PlanarBound(path),
		path:     path,
	}
	if class.Type == osm.Building {
		obj.Subtype = class.Subtype
		obj.Variant = class.Subtype.String()
	}
	return obj, "", nil
}
