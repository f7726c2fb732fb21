// Package session holds the user's selection and derives everything drawn
// from it in one explicit recompute step.
package session

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"kuanb/gosm-scene/geom"
	"kuanb/gosm-scene/preview"
	"kuanb/gosm-scene/script"
)

// Session is the mutable selection state. Mutators only change state;
// Recompute derives the visuals.
type Session struct {
	// Center is nil until the first selection.
	Center   *orb.Point
	Radius   float64
	Settings script.Settings

	// Now stamps generated scripts; nil means time.Now.
	Now func() time.Time

	drag preview.Drag
}

// Derived is everything recomputed from the session state.
type Derived struct {
	Overlay *geojson.FeatureCollection `json:"overlay"`
	Handle  orb.Point                  `json:"handle"`
	BBox    orb.Bound                  `json:"bbox"`
	Frame   preview.Frame              `json:"frame"`
	Script  string                     `json:"script"`
}

// New starts a session without a center. The radius follows the settings'
// camera radius.
func New(settings script.Settings) *Session {
	s := &Session{Settings: settings}
	s.SetRadius(float64(settings.Camera.Radius))
	return s
}

// SetCenter selects a new center.
func (s *Session) SetCenter(p orb.Point) {
	s.Center = &p
	s.Settings.Center = script.Center{Lat: script.Number(p.Lat()), Lon: script.Number(p.Lon())}
}

// SetCenterText sets the center from text fields. Input that is not a valid
// coordinate pair is ignored and reported false.
func (s *Session) SetCenterText(lat, lon string) bool {
	la, ok := parseFinite(lat)
	if !ok || la < -90 || la > 90 {
		return false
	}
	lo, ok := parseFinite(lon)
	if !ok || lo < -180 || lo > 180 {
		return false
	}
	s.SetCenter(orb.Point{lo, la})
	return true
}

// SetRadius clamps r into the allowed range. The camera radius follows.
func (s *Session) SetRadius(r float64) {
	s.Radius = geom.ClampRadius(r)
	s.Settings.Camera.Radius = script.Number(s.Radius)
}

// SetRadiusText is SetRadius for a text field; non-numeric input is ignored.
func (s *Session) SetRadiusText(r string) bool {
	v, ok := parseFinite(r)
	if !ok {
		return false
	}
	s.SetRadius(v)
	return true
}

// DragHandle sets the radius from the dragged edge handle position.
func (s *Session) DragHandle(handle orb.Point) (float64, bool) {
	if s.Center == nil {
		return 0, false
	}
	s.SetRadius(geom.RadiusFromHandle(*s.Center, handle))
	return s.Radius, true
}

// SetCamera replaces the camera. Its radius is clamped and drives the
// selection radius.
func (s *Session) SetCamera(c script.Camera) {
	s.Settings.Camera = c
	s.SetRadius(float64(c.Radius))
}

// ApplyPreset moves the camera to a named preset.
func (s *Session) ApplyPreset(name string) bool {
	p, ok := script.LookupPreset(name)
	if !ok {
		return false
	}
	s.Settings.ApplyPreset(p)
	s.SetRadius(p.Radius)
	return true
}

// StartCameraDrag grabs the camera marker if mouse is on it.
func (s *Session) StartCameraDrag(canvas preview.Size, mouse preview.Point) bool {
	return s.drag.Start(canvas, s.Settings.Camera.Params(), mouse)
}

// MoveCameraDrag moves the grabbed camera marker to mouse.
func (s *Session) MoveCameraDrag(canvas preview.Size, mouse preview.Point) bool {
	x, y, ok := s.drag.Move(canvas, mouse)
	if !ok {
		return false
	}
	s.Settings.Camera.X = script.Number(x)
	s.Settings.Camera.Y = script.Number(y)
	return true
}

// EndCameraDrag releases the camera marker.
func (s *Session) EndCameraDrag() { s.drag.End() }

// Recompute derives the map overlay, the camera diagram and the script. It
// reports false while no center has been selected.
func (s *Session) Recompute(canvas preview.Size) (Derived, bool) {
	if s.Center == nil {
		return Derived{}, false
	}
	center := *s.Center

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	var buf bytes.Buffer
	if err := script.Render(&buf, s.Settings, now()); err != nil {
		// a broken script leaves the text empty, the visuals still update
		buf.Reset()
	}

	return Derived{
		Overlay: geom.OverlayCollection(center, s.Radius),
		Handle:  geom.RadiusHandle(center, s.Radius),
		BBox:    geom.BoundingBox(center, s.Radius),
		Frame:   preview.Project(canvas, s.Settings.Camera.Params()),
		Script:  buf.String(),
	}, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
