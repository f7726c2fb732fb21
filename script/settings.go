// Package script renders the RayRender R script that reproduces the preview
// offline, and reads and writes the settings that drive it.
package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"kuanb/gosm-scene/geom"
	"kuanb/gosm-scene/mesh"
	"kuanb/gosm-scene/preview"
)

// Number is a float that also decodes from a quoted string, the form
// settings files exported from HTML inputs use. Only finite values decode.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid number %q: not finite", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

type Center struct {
	Lat Number `json:"lat"`
	Lon Number `json:"lon"`
}

// Camera is the look-from position in scene meters plus lens settings.
type Camera struct {
	X      Number `json:"x"`
	Y      Number `json:"y"`
	Z      Number `json:"z"`
	FOV    Number `json:"fov"`
	Radius Number `json:"radius"`
	Theta  Number `json:"theta"`
	Phi    Number `json:"phi"`
}

// Params converts the camera for the 2D diagram.
func (c Camera) Params() preview.CameraParams {
	return preview.CameraParams{
		LookFromX: float64(c.X),
		LookFromY: float64(c.Y),
		LookFromZ: float64(c.Z),
		FOV:       float64(c.FOV),
		Radius:    float64(c.Radius),
		Theta:     float64(c.Theta),
		Phi:       float64(c.Phi),
	}
}

type Layers struct {
	Buildings bool `json:"buildings"`
	Parks     bool `json:"parks"`
	Water     bool `json:"water"`
	Roads     bool `json:"roads"`
	Rails     bool `json:"rails"`
	Landuse   bool `json:"landuse"`
}

type Colors struct {
	BuildingLow   string `json:"bldLow"`
	BuildingMid   string `json:"bldMid"`
	BuildingHigh  string `json:"bldHigh"`
	Park          string `json:"park"`
	Water         string `json:"water"`
	Road          string `json:"road"`
	RoadHighlight string `json:"roadHi"`
	Landuse       string `json:"landuse"`
}

type RenderParams struct {
	Width   Number `json:"width"`
	Height  Number `json:"height"`
	Samples Number `json:"samples"`
	Denoise bool   `json:"denoise"`
	Ambient bool   `json:"ambient"`
}

// MaterialParams tune the offline materials and buffers.
type MaterialParams struct {
	HeightMultiplier Number `json:"bldHeightMult"`
	WaterFuzz        Number `json:"waterFuzz"`
	RoadWidth        Number `json:"roadWidth"`
	RailWidth        Number `json:"railWidth"`
}

// CrownWidth is the buffer of the lighter strip drawn along each road.
func (m MaterialParams) CrownWidth() Number { return m.RoadWidth / 2.3 }

type Light struct {
	Intensity Number `json:"intensity"`
	X         Number `json:"x"`
	Y         Number `json:"y"`
	Z         Number `json:"z"`
	Radius    Number `json:"radius"`
}

type Background struct {
	High string `json:"high"`
	Low  string `json:"low"`
}

// Settings is everything the script and the preview share.
type Settings struct {
	Center     Center         `json:"center"`
	Camera     Camera         `json:"camera"`
	Layers     Layers         `json:"layers"`
	Colors     Colors         `json:"colors"`
	Render     RenderParams   `json:"render"`
	Material   MaterialParams `json:"material"`
	Light      Light          `json:"light"`
	Background Background     `json:"background"`
}

// DefaultSettings centers on Istanbul with the aerial camera.
func DefaultSettings() Settings {
	return Settings{
		Center: Center{Lat: 41.0082, Lon: 28.9784},
		Camera: Camera{X: 0, Y: 650, Z: 1000, FOV: 60, Radius: 1000, Theta: 0, Phi: 30},
		Layers: Layers{Buildings: true, Parks: true, Water: true, Roads: true, Rails: true, Landuse: true},
		Colors: Colors{
			BuildingLow:   "#e0dccf",
			BuildingMid:   "#cfc8b8",
			BuildingHigh:  "#b5ac99",
			Park:          "#7fb069",
			Water:         "#4a90c2",
			Road:          "#3a3a3a",
			RoadHighlight: "#5a5a5a",
			Landuse:       "#a7c080",
		},
		Render:     RenderParams{Width: 1920, Height: 1080, Samples: 256, Denoise: true, Ambient: true},
		Material:   MaterialParams{HeightMultiplier: 1, WaterFuzz: 0.05, RoadWidth: 4, RailWidth: 3},
		Light:      Light{Intensity: 12, X: 500, Y: 1200, Z: 500, Radius: 150},
		Background: Background{High: "#bcd7ff", Low: "#ffffff"},
	}
}

// Normalize clamps the radius and replaces malformed colours with defaults.
// Colours end up verbatim in the script, so nothing else may pass.
func (s *Settings) Normalize() {
	s.Camera.Radius = Number(geom.ClampRadius(float64(s.Camera.Radius)))

	def := DefaultSettings()
	fix := func(c *string, fallback string) {
		if v, ok := mesh.NormalizeColor(*c); ok {
			*c = v
			return
		}
		*c = fallback
	}
	fix(&s.Colors.BuildingLow, def.Colors.BuildingLow)
	fix(&s.Colors.BuildingMid, def.Colors.BuildingMid)
	fix(&s.Colors.BuildingHigh, def.Colors.BuildingHigh)
	fix(&s.Colors.Park, def.Colors.Park)
	fix(&s.Colors.Water, def.Colors.Water)
	fix(&s.Colors.Road, def.Colors.Road)
	fix(&s.Colors.RoadHighlight, def.Colors.RoadHighlight)
	fix(&s.Colors.Landuse, def.Colors.Landuse)
	fix(&s.Background.High, def.Background.High)
	fix(&s.Background.Low, def.Background.Low)
}

// Palette is the preview palette with the settings' colours applied.
func (s Settings) Palette() mesh.Palette {
	return mesh.DefaultPalette().WithColors(s.Colors.BuildingMid, s.Colors.Water, s.Colors.Park)
}

// Export writes s as indented JSON.
func Export(w io.Writer, s Settings) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Import reads settings over the defaults, so partial files keep the rest.
func Import(r io.Reader) (Settings, error) {
	return ImportOver(r, DefaultSettings())
}

// ImportOver is Import with a caller-supplied base.
func ImportOver(r io.Reader, base Settings) (Settings, error) {
	s := base
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.Normalize()
	return s, nil
}
