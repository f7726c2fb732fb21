package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"kuanb/gosm-scene/geom"
	"kuanb/gosm-scene/mesh"
	"kuanb/gosm-scene/metrics"
	"kuanb/gosm-scene/osm"
	"kuanb/gosm-scene/preview"
	"kuanb/gosm-scene/scene"
	"kuanb/gosm-scene/script"
	"kuanb/gosm-scene/search"
	"kuanb/gosm-scene/session"
)

// User-visible status strings.
const (
	msgFetchFailed = "error fetching data"
	msgNoResults   = "no results"
)

// maxBody caps request bodies; settings and scene requests are small.
const maxBody = 1 << 20

var defaultCanvas = preview.Size{Width: 800, Height: 600}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ReadRuntimeMetrics())
}

// defaultSettings are the script defaults with the configured center, radius
// and layers applied.
func (s *Server) defaultSettings() script.Settings {
	st := script.DefaultSettings()
	d := s.opts.Defaults
	if d.Lat != 0 || d.Lon != 0 {
		st.Center = script.Center{Lat: script.Number(d.Lat), Lon: script.Number(d.Lon)}
	}
	if d.Radius > 0 {
		st.Camera.Radius = script.Number(geom.ClampRadius(d.Radius))
	}
	l := s.defaultLayers()
	st.Layers.Buildings, st.Layers.Water, st.Layers.Parks = l.Buildings, l.Water, l.Parks
	return st
}

// defaultLayers are the configured layer toggles.
func (s *Server) defaultLayers() scene.Layers {
	buildings, water, parks := s.opts.Defaults.Layers()
	return scene.Layers{Buildings: buildings, Water: water, Parks: parks}
}

func (s *Server) handleDefaultSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.defaultSettings())
}

// decodeSettings reads settings over the server defaults. An empty payload
// yields the defaults.
func (s *Server) decodeSettings(raw json.RawMessage) (script.Settings, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return s.defaultSettings(), nil
	}
	return script.ImportOver(bytes.NewReader(raw), s.defaultSettings())
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	defer r.Body.Close()
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func centerPoint(c *script.Center) (orb.Point, error) {
	if c == nil {
		return orb.Point{}, errors.New("center is required")
	}
	lat, lon := float64(c.Lat), float64(c.Lon)
	if !finite(lat) || !finite(lon) {
		return orb.Point{}, errors.New("center must be finite")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, fmt.Errorf("center %g,%g out of range", lat, lon)
	}
	return orb.Point{lon, lat}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

type viewRequest struct {
	Center *script.Center `json:"center"`
	// Radius overrides the settings' camera radius when positive.
	Radius   float64         `json:"radius"`
	Preset   string          `json:"preset"`
	Aspect   string          `json:"aspect"`
	Settings json.RawMessage `json:"settings"`
	Canvas   preview.Size    `json:"canvas"`
}

type viewResponse struct {
	session.Derived
	Radius   float64         `json:"radius"`
	Settings script.Settings `json:"settings"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings, err := s.decodeSettings(req.Settings)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	center, err := centerPoint(req.Center)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := session.New(settings)
	sess.Now = s.opts.Now
	sess.SetCenter(center)
	if req.Preset != "" && !sess.ApplyPreset(req.Preset) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown preset %q", req.Preset))
		return
	}
	if req.Aspect != "" {
		// unknown ratios, "custom" included, keep the given size
		sess.Settings.SetAspect(req.Aspect)
	}
	if req.Radius > 0 {
		sess.SetRadius(req.Radius)
	}

	canvas := req.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas = defaultCanvas
	}
	derived, _ := sess.Recompute(canvas)
	s.writeJSON(w, http.StatusOK, viewResponse{Derived: derived, Radius: sess.Radius, Settings: sess.Settings})
}

type dragRequest struct {
	Center *script.Center `json:"center"`
	Handle *script.Center `json:"handle"`
}

type dragResponse struct {
	Radius float64   `json:"radius"`
	Handle orb.Point `json:"handle"`
}

func (s *Server) handleRadiusDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	center, err := centerPoint(req.Center)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Handle == nil {
		s.writeError(w, http.StatusBadRequest, "handle is required")
		return
	}
	handle, err := centerPoint(req.Handle)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "handle: "+err.Error())
		return
	}

	sess := session.New(s.defaultSettings())
	sess.SetCenter(center)
	radius, _ := sess.DragHandle(handle)
	s.writeJSON(w, http.StatusOK, dragResponse{Radius: radius, Handle: geom.RadiusHandle(center, radius)})
}

type pickRequest struct {
	X      float64 `json:"x"`
	Z      float64 `json:"z"`
	Radius float64 `json:"radius"`
}

type sceneRequest struct {
	Center *script.Center `json:"center"`
	Radius float64        `json:"radius"`
	Layers *scene.Layers  `json:"layers"`
	Colors *script.Colors `json:"colors"`
	Pick   *pickRequest   `json:"pick,omitempty"`
}

type sceneResponse struct {
	Center     orb.Point         `json:"center"`
	Radius     float64           `json:"radius"`
	BBox       orb.Bound         `json:"bbox"`
	Objects    []scene.Object    `json:"objects"`
	Report     scene.Report      `json:"report"`
	Candidates []scene.Candidate `json:"candidates,omitempty"`
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	center, err := centerPoint(req.Center)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius := req.Radius
	if radius <= 0 {
		radius = s.opts.Defaults.Radius
	}
	radius = geom.ClampRadius(radius)
	bound := geom.BoundingBox(center, radius)

	data, err := s.fetch(r.Context(), bound)
	if err != nil {
		s.log.Error("feature fetch failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("source", s.opts.SourceName),
			zap.Error(err))
		s.writeError(w, http.StatusBadGateway, msgFetchFailed)
		return
	}

	asm := scene.NewAssembler(s.log, s.opts.Metrics)
	asm.Layers = s.defaultLayers()
	if req.Layers != nil {
		asm.Layers = *req.Layers
	}
	if req.Colors != nil {
		asm.Palette = mesh.DefaultPalette().WithColors(req.Colors.BuildingMid, req.Colors.Water, req.Colors.Park)
	}
	group, report := asm.Assemble(nil, data, center)

	resp := sceneResponse{
		Center:  center,
		Radius:  radius,
		BBox:    bound,
		Objects: group.Objects,
		Report:  report,
	}
	if req.Pick != nil {
		resp.Candidates = group.Pick(req.Pick.X, req.Pick.Z, req.Pick.Radius)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fetch(ctx context.Context, bound orb.Bound) (*osm.Collection, error) {
	if s.opts.Source == nil {
		return nil, errors.New("no feature source configured")
	}
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}
	data, err := s.opts.Source.Fetch(ctx, bound)
	switch {
	case err != nil:
		s.opts.Metrics.ObserveFetch(s.opts.SourceName, metrics.OutcomeError)
		return nil, err
	case data.Len() == 0:
		s.opts.Metrics.ObserveFetch(s.opts.SourceName, metrics.OutcomeEmpty)
	default:
		s.opts.Metrics.ObserveFetch(s.opts.SourceName, metrics.OutcomeOK)
	}
	return data, nil
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	settings, err := s.decodeSettings(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := script.Render(&buf, settings, s.opts.Now()); err != nil {
		s.log.Error("script render failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to render script")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rayrender_scene.R"`)
	w.Write(buf.Bytes())
}

type placeResult struct {
	DisplayName string  `json:"display_name"`
	Main        string  `json:"main"`
	Secondary   string  `json:"secondary"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

func toResult(p search.Place) placeResult {
	return placeResult{
		DisplayName: p.DisplayName,
		Main:        p.MainText(),
		Secondary:   p.SecondaryText(),
		Lat:         p.Point.Lat(),
		Lon:         p.Point.Lon(),
	}
}

type searchResponse struct {
	Results []placeResult `json:"results"`
	Message string        `json:"message,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	resp := searchResponse{Results: []placeResult{}}
	if s.opts.Geocoder == nil {
		resp.Message = msgNoResults
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	places, err := s.opts.Geocoder.Search(r.Context(), q, s.opts.SearchLimit)
	switch {
	case errors.Is(err, search.ErrQueryTooShort):
		// short queries are not sent; the list just stays empty
	case err != nil:
		s.log.Warn("place search failed", zap.String("query", q), zap.Error(err))
		s.opts.Metrics.ObserveSearch(metrics.OutcomeError)
		resp.Message = msgNoResults
	case len(places) == 0:
		s.opts.Metrics.ObserveSearch(metrics.OutcomeEmpty)
		resp.Message = msgNoResults
	default:
		s.opts.Metrics.ObserveSearch(metrics.OutcomeOK)
		for _, p := range places {
			resp.Results = append(resp.Results, toResult(p))
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		s.writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	point, err := centerPoint(&script.Center{Lat: script.Number(lat), Lon: script.Number(lon)})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.opts.Geocoder == nil {
		s.writeError(w, http.StatusNotFound, msgNoResults)
		return
	}

	place, err := s.opts.Geocoder.Reverse(r.Context(), point)
	switch {
	case errors.Is(err, search.ErrNotFound):
		s.opts.Metrics.ObserveSearch(metrics.OutcomeEmpty)
		s.writeError(w, http.StatusNotFound, msgNoResults)
	case err != nil:
		s.log.Warn("reverse lookup failed", zap.Error(err))
		s.opts.Metrics.ObserveSearch(metrics.OutcomeError)
		s.writeError(w, http.StatusBadGateway, msgFetchFailed)
	default:
		s.opts.Metrics.ObserveSearch(metrics.OutcomeOK)
		s.writeJSON(w, http.StatusOK, toResult(place))
	}
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, script.Presets())
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	p, ok := script.LookupPreset(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown preset %q", name))
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}
