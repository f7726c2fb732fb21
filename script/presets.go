package script

import "sort"

// Preset is a named camera placement.
type Preset struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	FOV    float64 `json:"fov"`
	Radius float64 `json:"radius"`
}

var presets = map[string]Preset{
	"aerial":   {Name: "aerial", Z: 1000, X: 0, Y: 650, FOV: 60, Radius: 1000},
	"street":   {Name: "street", Z: 200, X: 0, Y: 100, FOV: 80, Radius: 500},
	"bird":     {Name: "bird", Z: 500, X: 500, Y: 500, FOV: 70, Radius: 800},
	"dramatic": {Name: "dramatic", Z: 300, X: -800, Y: 400, FOV: 45, Radius: 1200},
}

// Presets lists the presets by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// ApplyPreset moves the camera to p. Theta and phi are left alone.
func (s *Settings) ApplyPreset(p Preset) {
	s.Camera.X = Number(p.X)
	s.Camera.Y = Number(p.Y)
	s.Camera.Z = Number(p.Z)
	s.Camera.FOV = Number(p.FOV)
	s.Camera.Radius = Number(p.Radius)
}

var aspectRatios = map[string][2]int{
	"16:9": {1920, 1080},
	"1:1":  {1800, 1800},
	"4:3":  {1600, 1200},
	"21:9": {2560, 1080},
	"9:16": {1080, 1920},
}

// AspectRatio returns the output size for a named ratio.
func AspectRatio(name string) (width, height int, ok bool) {
	wh, ok := aspectRatios[name]
	return wh[0], wh[1], ok
}

// SetAspect sets the render size from a named ratio. Unknown names, including
// "custom", leave the size unchanged.
func (s *Settings) SetAspect(name string) bool {
	w, h, ok := AspectRatio(name)
	if !ok {
		return false
	}
	s.Render.Width, s.Render.Height = Number(w), Number(h)
	return true
}
