package osm

import (
	"strconv"
	"strings"
)

// SemanticType is what a way renders as in the scene.
type SemanticType int

const (
	None SemanticType = iota
	Building
	Water
	Park
	Road
	Rail
)

func (t SemanticType) String() string {
	switch t {
	case Building:
		return "building"
	case Water:
		return "water"
	case Park:
		return "park"
	case Road:
		return "road"
	case Rail:
		return "rail"
	default:
		return "none"
	}
}

// IsLinear reports whether the type is drawn as a ribbon.
func (t SemanticType) IsLinear() bool { return t == Road || t == Rail }

// BuildingSubtype selects the building material and default height.
type BuildingSubtype int

const (
	SubtypeDefault BuildingSubtype = iota
	SubtypeHistoric
	SubtypeCommercial
	SubtypeResidential
	SubtypeIndustrial
)

func (s BuildingSubtype) String() string {
	switch s {
	case SubtypeHistoric:
		return "historic"
	case SubtypeCommercial:
		return "commercial"
	case SubtypeResidential:
		return "residential"
	case SubtypeIndustrial:
		return "industrial"
	default:
		return "default"
	}
}

// Classification is the derived render type of a single way.
type Classification struct {
	Type    SemanticType
	Subtype BuildingSubtype
	// Width is the ribbon width in meters for roads and rails.
	Width float64
	// Inherited is set when the type came from an enclosing relation.
	Inherited bool
}

const (
	defaultLinearWidth = 2.0
	railWidth          = 3.0
	tramWidth          = 2.0

	metersPerLevel = 3.5

	defaultBuildingHeight    = 12.0
	historicBuildingHeight   = 20.0
	commercialBuildingHeight = 18.0
)

var highwayWidths = map[string]float64{
	"motorway":    12,
	"trunk":       12,
	"primary":     10,
	"secondary":   8,
	"tertiary":    6,
	"residential": 4,
	"service":     4,
}

// Classify resolves a way's own tags, falling back to the type inherited from
// an enclosing relation when none of its own tags classify it.
func Classify(tags Tags, inherited SemanticType) Classification {
	switch {
	case tags.Has("building"):
		return Classification{Type: Building, Subtype: BuildingSubtypeOf(tags)}
	case isWater(tags):
		return Classification{Type: Water}
	case isPark(tags):
		return Classification{Type: Park}
	case tags.Has("highway"):
		return Classification{Type: Road, Width: HighwayWidth(tags.Get("highway"))}
	case tags.Has("railway"):
		w := railWidth
		if tags.Get("railway") == "tram" {
			w = tramWidth
		}
		return Classification{Type: Rail, Width: w}
	}

	if inherited == None {
		return Classification{}
	}
	return Classification{Type: inherited, Inherited: true}
}

// RelationType resolves the type a relation passes on to its member ways.
// Water wins over park, park over building.
func RelationType(tags Tags) SemanticType {
	switch {
	case isWater(tags):
		return Water
	case isPark(tags):
		return Park
	case tags.Has("building"):
		return Building
	}
	return None
}

// InheritedTypes scans all relations once and records, per member way, the
// type of the relation. A way in several typed relations takes the last one.
func InheritedTypes(c *Collection) map[OsmWayId]SemanticType {
	inherited := make(map[OsmWayId]SemanticType)
	for _, rel := range c.Relations() {
		t := RelationType(rel.Tags)
		if t == None {
			continue
		}
		for _, m := range rel.Members {
			if m.Type == TypeWay {
				inherited[OsmWayId(m.Ref)] = t
			}
		}
	}
	return inherited
}

// BuildingSubtypeOf picks the building subtype from a fixed rule table.
func BuildingSubtypeOf(tags Tags) BuildingSubtype {
	b := tags.Get("building")
	switch {
	case tags.Has("historic"),
		tags.Get("amenity") == "place_of_worship",
		tags.Get("tourism") == "attraction",
		b == "church", b == "cathedral", b == "mosque":
		return SubtypeHistoric
	case b == "commercial", b == "office", b == "retail", b == "hotel", tags.Has("office"):
		return SubtypeCommercial
	case b == "industrial", b == "warehouse", b == "factory":
		return SubtypeIndustrial
	case b == "residential", b == "house", b == "apartments", b == "detached":
		return SubtypeResidential
	}
	return SubtypeDefault
}

// HighwayWidth is the ribbon width for a highway class.
func HighwayWidth(class string) float64 {
	if w, ok := highwayWidths[class]; ok {
		return w
	}
	return defaultLinearWidth
}

// IsBridge reports whether a linear feature is raised as a bridge. Only
// bridge=yes counts; viaduct, movable and other values stay on the ground.
func IsBridge(tags Tags) bool {
	return tags.Get("bridge") == "yes"
}

// BuildingHeight applies the height policy: an explicit height tag wins over
// building:levels, which wins over the subtype default. Values that do not
// parse are treated as absent.
func BuildingHeight(tags Tags, subtype BuildingSubtype) float64 {
	if h, ok := parseLeadingFloat(tags.Get("height")); ok && h > 0 {
		return h
	}
	if lv, ok := parseLeadingFloat(tags.Get("building:levels")); ok && lv > 0 {
		return float64(int(lv)) * metersPerLevel
	}
	switch subtype {
	case SubtypeHistoric:
		return historicBuildingHeight
	case SubtypeCommercial:
		return commercialBuildingHeight
	}
	return defaultBuildingHeight
}

func isWater(tags Tags) bool {
	natural := tags.Get("natural")
	return natural == "water" ||
		tags.Has("water") ||
		natural == "coastline" ||
		tags.Get("place") == "sea" ||
		tags.Get("landuse") == "basin"
}

func isPark(tags Tags) bool {
	leisure := tags.Get("leisure")
	landuse := tags.Get("landuse")
	return leisure == "park" ||
		landuse == "forest" ||
		leisure == "garden" ||
		landuse == "grass"
}

// parseLeadingFloat reads the numeric prefix of values like "20", "20 m" or
// "12,5".
func parseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
