package mesh

import (
	"regexp"
	"strings"

	"kuanb/gosm-scene/osm"
)

const (
	// GroundElevation lifts ribbons just above the ground plane.
	GroundElevation = 0.1
	// BridgeElevation is the deck height of ribbons tagged as bridges.
	BridgeElevation = 8.0

	waterHeight = 1.0
	waterOffset = -1.0
	parkHeight  = 0.5
	parkOffset  = 0.1
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Material is a physically based surface description handed to the renderer.
type Material struct {
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Roughness   float64 `json:"roughness"`
	Metalness   float64 `json:"metalness"`
	Opacity     float64 `json:"opacity"`
	Transparent bool    `json:"transparent,omitempty"`
}

// Palette holds one material per semantic type, with five building variants.
type Palette struct {
	Building    Material `json:"building"`
	Historic    Material `json:"historic"`
	Commercial  Material `json:"commercial"`
	Residential Material `json:"residential"`
	Industrial  Material `json:"industrial"`
	Water       Material `json:"water"`
	Park        Material `json:"park"`
	Road        Material `json:"road"`
	Rail        Material `json:"rail"`
}

// DefaultPalette returns the stock materials.
func DefaultPalette() Palette {
	return Palette{
		Building:    Material{Name: "building", Color: "#cfc8b8", Roughness: 0.6, Metalness: 0.1, Opacity: 1},
		Historic:    Material{Name: "historic", Color: "#8d7f73", Roughness: 0.9, Metalness: 0, Opacity: 1},
		Commercial:  Material{Name: "commercial", Color: "#607d8b", Roughness: 0.2, Metalness: 0.6, Opacity: 1},
		Residential: Material{Name: "residential", Color: "#d7ccc8", Roughness: 0.8, Metalness: 0, Opacity: 1},
		Industrial:  Material{Name: "industrial", Color: "#546e7a", Roughness: 0.9, Metalness: 0.2, Opacity: 1},
		Water:       Material{Name: "water", Color: "#4a90c2", Roughness: 0.1, Metalness: 0.5, Opacity: 0.8, Transparent: true},
		Park:        Material{Name: "park", Color: "#7fb069", Roughness: 0.8, Metalness: 0, Opacity: 1},
		Road:        Material{Name: "road", Color: "#333333", Roughness: 0.9, Metalness: 0, Opacity: 1},
		Rail:        Material{Name: "rail", Color: "#222222", Roughness: 0.7, Metalness: 0.4, Opacity: 1},
	}
}

// WithColors overrides the default building, water and park colours. Blank or
// malformed values keep the existing colour.
func (p Palette) WithColors(building, water, park string) Palette {
	if c, ok := NormalizeColor(building); ok {
		p.Building.Color = c
	}
	if c, ok := NormalizeColor(water); ok {
		p.Water.Color = c
	}
	if c, ok := NormalizeColor(park); ok {
		p.Park.Color = c
	}
	return p
}

// For selects the material for a classified feature.
func (p Palette) For(t osm.SemanticType, subtype osm.BuildingSubtype) Material {
	switch t {
	case osm.Building:
		switch subtype {
		case osm.SubtypeHistoric:
			return p.Historic
		case osm.SubtypeCommercial:
			return p.Commercial
		case osm.SubtypeResidential:
			return p.Residential
		case osm.SubtypeIndustrial:
			return p.Industrial
		}
		return p.Building
	case osm.Water:
		return p.Water
	case osm.Park:
		return p.Park
	case osm.Road:
		return p.Road
	case osm.Rail:
		return p.Rail
	}
	return Material{}
}

// NormalizeColor accepts "#rrggbb" and returns it lower-cased.
func NormalizeColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !hexColor.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// AreaParams returns the extrusion height and vertical offset of an area
// feature. Non-area types give zero.
func AreaParams(t osm.SemanticType, subtype osm.BuildingSubtype, tags osm.Tags) (height, offset float64) {
	switch t {
	case osm.Building:
		return osm.BuildingHeight(tags, subtype), 0
	case osm.Water:
		return waterHeight, waterOffset
	case osm.Park:
		return parkHeight, parkOffset
	}
	return 0, 0
}

// LinearElevation returns the height at which a road or rail ribbon is laid.
func LinearElevation(tags osm.Tags) float64 {
	if osm.IsBridge(tags) {
		return BridgeElevation
	}
	return GroundElevation
}
