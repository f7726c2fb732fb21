package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuanb/gosm-scene/config"
	"kuanb/gosm-scene/geom"
	"kuanb/gosm-scene/metrics"
	"kuanb/gosm-scene/osm"
	"kuanb/gosm-scene/search"
)

var istanbul = orb.Point{28.9784, 41.0082}

type fakeSource struct {
	data  *osm.Collection
	err   error
	bound orb.Bound
}

func (f *fakeSource) Fetch(ctx context.Context, bound orb.Bound) (*osm.Collection, error) {
	f.bound = bound
	return f.data, f.err
}

type fakeGeocoder struct {
	places     []search.Place
	err        error
	reverse    search.Place
	reverseErr error
	query      string
	limit      int
}

func (f *fakeGeocoder) Search(ctx context.Context, query string, limit int) ([]search.Place, error) {
	f.query, f.limit = query, limit
	if len([]rune(strings.TrimSpace(query))) < search.MinQueryLength {
		return nil, search.ErrQueryTooShort
	}
	return f.places, f.err
}

func (f *fakeGeocoder) Reverse(ctx context.Context, point orb.Point) (search.Place, error) {
	return f.reverse, f.reverseErr
}

func buildingFixture() *osm.Collection {
	lat, lon := istanbul.Lat(), istanbul.Lon()
	coll := &osm.Collection{}
	coll.Add(
		&osm.OsmNode{ID: 1, Lat: lat, Lon: lon},
		&osm.OsmNode{ID: 2, Lat: lat, Lon: lon + 0.0002},
		&osm.OsmNode{ID: 3, Lat: lat + 0.0002, Lon: lon + 0.0002},
		&osm.OsmNode{ID: 4, Lat: lat + 0.0002, Lon: lon},
		&osm.OsmWay{ID: 10, Nodes: []osm.OsmNodeId{1, 2, 3, 4, 1}, Tags: osm.Tags{"building": "yes"}},
		&osm.OsmWay{ID: 11, Nodes: []osm.OsmNodeId{1, 3}, Tags: osm.Tags{"highway": "residential"}},
	)
	return coll
}

type testEnv struct {
	srv    *Server
	m      *metrics.Collector
	source *fakeSource
	geo    *fakeGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	env := &testEnv{
		m:      m,
		source: &fakeSource{data: buildingFixture()},
		geo:    &fakeGeocoder{},
	}
	env.srv = NewServer(Options{
		Source:      env.source,
		SourceName:  "fake",
		Geocoder:    env.geo,
		Metrics:     m,
		Defaults:    config.Default().Defaults,
		SearchLimit: 3,
		Now:         func() time.Time { return time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) },
	})
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, id)
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestRuntimeMetrics(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/debug/runtime", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[RuntimeMetrics](t, rec)
	assert.Greater(t, m.Goroutines, 0)
	assert.Greater(t, m.SysMB, 0.0)
}

type sceneBody struct {
	Radius  float64 `json:"radius"`
	Objects []struct {
		WayID int64  `json:"way_id"`
		Kind  string `json:"kind"`
		Mesh  struct {
			Indices []uint32 `json:"indices"`
		} `json:"mesh"`
		Material struct {
			Color string `json:"color"`
		} `json:"material"`
	} `json:"objects"`
	Report struct {
		Built   int            `json:"built"`
		Dropped map[string]int `json:"dropped"`
	} `json:"report"`
	Candidates []struct {
		WayID    int64   `json:"way_id"`
		Distance float64 `json:"distance"`
	} `json:"candidates"`
}

func TestScene(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/scene",
		`{"center": {"lat": 41.0082, "lon": 28.9784}, "radius": 50,
		  "colors": {"bldMid": "#112233"}, "pick": {"x": 8, "z": -10, "radius": 1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[sceneBody](t, rec)
	assert.Equal(t, 100.0, body.Radius, "radius is clamped")
	assert.Equal(t, 2, body.Report.Built)
	require.Len(t, body.Objects, 2)
	assert.Equal(t, int64(10), body.Objects[0].WayID)
	assert.Equal(t, "building", body.Objects[0].Kind)
	assert.Equal(t, "#112233", body.Objects[0].Material.Color)
	assert.NotEmpty(t, body.Objects[0].Mesh.Indices)
	assert.Equal(t, "road", body.Objects[1].Kind)

	require.NotEmpty(t, body.Candidates)
	assert.Equal(t, int64(10), body.Candidates[0].WayID)
	assert.Zero(t, body.Candidates[0].Distance)

	assert.Equal(t, geom.BoundingBox(istanbul, 100), env.source.bound)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.m.FeatureFetch.WithLabelValues("fake", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.m.SceneBuilds))
}

func TestSceneLayersOff(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/scene",
		`{"center": {"lat": "41.0082", "lon": "28.9784"}, "layers": {"buildings": false, "water": true, "parks": true}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[sceneBody](t, rec)
	assert.Equal(t, 500.0, body.Radius, "configured default radius")
	assert.Equal(t, 1, body.Report.Built)
	assert.Equal(t, 1, body.Report.Dropped["layer_hidden"])
}

func TestSceneFetchError(t *testing.T) {
	env := newTestEnv(t)
	env.source.err = errors.New("upstream timeout")

	rec := env.do(http.MethodPost, "/scene", `{"center": {"lat": 41.0082, "lon": 28.9784}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "error fetching data", decode[errorResponse](t, rec).Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.m.FeatureFetch.WithLabelValues("fake", metrics.OutcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.m.SceneBuilds))
}

func TestSceneEmptyFetch(t *testing.T) {
	env := newTestEnv(t)
	env.source.data = &osm.Collection{}

	rec := env.do(http.MethodPost, "/scene", `{"center": {"lat": 41.0082, "lon": 28.9784}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[sceneBody](t, rec).Report.Built)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.m.FeatureFetch.WithLabelValues("fake", metrics.OutcomeEmpty)))
}

func TestSceneBadRequests(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{
		`{`,
		`{}`,
		`{"center": {"lat": 91, "lon": 0}}`,
	} {
		rec := env.do(http.MethodPost, "/scene", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
	}

	rec := env.do(http.MethodGet, "/scene", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestView(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/view", `{"center": {"lat": 41.0082, "lon": 28.9784}, "canvas": {"width": 400, "height": 300}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Radius  float64 `json:"radius"`
		Script  string  `json:"script"`
		Overlay struct {
			Features []json.RawMessage `json:"features"`
		} `json:"overlay"`
		Frame struct {
			Direction string `json:"direction"`
			LookAt    struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"lookat"`
		} `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 500.0, body.Radius)
	assert.Len(t, body.Overlay.Features, 4)
	assert.Equal(t, "South", body.Frame.Direction)
	assert.Equal(t, 200.0, body.Frame.LookAt.X)
	assert.Contains(t, body.Script, "lat <- 41.0082\n")
	assert.Contains(t, body.Script, "radius <- 500\n")
}

func TestViewPresetAndRadius(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/view",
		`{"center": {"lat": 48.8584, "lon": 2.2945}, "preset": "dramatic", "aspect": "1:1", "radius": 20000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Radius   float64 `json:"radius"`
		Settings struct {
			Camera map[string]float64 `json:"camera"`
			Render map[string]any     `json:"render"`
		} `json:"settings"`
		Frame struct {
			Direction string `json:"direction"`
		} `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3000.0, body.Radius)
	assert.Equal(t, -800.0, body.Settings.Camera["x"])
	assert.Equal(t, 3000.0, body.Settings.Camera["radius"])
	assert.Equal(t, 1800.0, body.Settings.Render["width"])
	assert.NotEmpty(t, body.Frame.Direction)

	rec = env.do(http.MethodPost, "/view", `{"center": {"lat": 1, "lon": 1}, "preset": "orbit"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/view", `{"settings": {"camera": {"fov": 30}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no center selected")
}

func TestRadiusDrag(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/radius/drag",
		`{"center": {"lat": 41.0082, "lon": 28.9784}, "handle": {"lat": 42, "lon": 30}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Radius float64   `json:"radius"`
		Handle orb.Point `json:"handle"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3000.0, body.Radius)
	assert.Greater(t, body.Handle.Lat(), istanbul.Lat())
	assert.Greater(t, body.Handle.Lon(), istanbul.Lon())

	rec = env.do(http.MethodPost, "/radius/drag", `{"center": {"lat": 41.0082, "lon": 28.9784}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScript(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/script", `{"layers": {"water": false}, "colors": {"water": "not a colour"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "# Created: 1/2/2026, 9:00:00 AM")
	assert.Contains(t, out, "radius <- 500\n")
	assert.Contains(t, out, "# Water bodies layer disabled")
	assert.NotContains(t, out, "not a colour")

	rec = env.do(http.MethodPost, "/script", "")
	assert.Equal(t, http.StatusOK, rec.Code, "empty body renders the defaults")

	rec = env.do(http.MethodPost, "/script", `{"camera": {"x": "left"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDefaultSettings(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/settings/default", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Camera struct {
			Radius float64 `json:"radius"`
		} `json:"camera"`
		Layers map[string]bool `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 500.0, body.Camera.Radius)
	assert.True(t, body.Layers["buildings"])
	assert.True(t, body.Layers["roads"])
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	env.geo.places = []search.Place{
		{DisplayName: "Galata Tower, Beyoğlu, Istanbul, Türkiye", Point: orb.Point{28.9741, 41.0256}},
	}

	rec := env.do(http.MethodGet, "/search?q=galata", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[searchResponse](t, rec)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Galata Tower", body.Results[0].Main)
	assert.Equal(t, "Beyoğlu, Istanbul", body.Results[0].Secondary)
	assert.Equal(t, 41.0256, body.Results[0].Lat)
	assert.Empty(t, body.Message)
	assert.Equal(t, 3, env.geo.limit)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.m.PlaceSearch.WithLabelValues(metrics.OutcomeOK)))

	rec = env.do(http.MethodGet, "/search?q=ga", "")
	body = decode[searchResponse](t, rec)
	assert.Empty(t, body.Results)
	assert.Empty(t, body.Message, "short queries are not searched")

	env.geo.places = nil
	body = decode[searchResponse](t, env.do(http.MethodGet, "/search?q=nowhere", ""))
	assert.Equal(t, "no results", body.Message)

	env.geo.err = errors.New("503")
	body = decode[searchResponse](t, env.do(http.MethodGet, "/search?q=nowhere", ""))
	assert.Equal(t, "no results", body.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.m.PlaceSearch.WithLabelValues(metrics.OutcomeError)))
}

func TestReverse(t *testing.T) {
	env := newTestEnv(t)
	env.geo.reverse = search.Place{DisplayName: "Fatih, Istanbul, Türkiye", Point: istanbul}

	rec := env.do(http.MethodGet, "/reverse?lat=41.0082&lon=28.9784", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fatih", decode[placeResult](t, rec).Main)

	env.geo.reverseErr = search.ErrNotFound
	rec = env.do(http.MethodGet, "/reverse?lat=0&lon=0", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no results", decode[errorResponse](t, rec).Error)

	rec = env.do(http.MethodGet, "/reverse?lat=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresets(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 4)

	rec = env.do(http.MethodGet, "/presets/street", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fov":80`)

	rec = env.do(http.MethodGet, "/presets/orbit", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/scene", `{"center": {"lat": 41.0082, "lon": 28.9784}}`)

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scene_builds_total 1")
	assert.Contains(t, rec.Body.String(), `feature_fetch_total{outcome="ok",source="fake"} 1`)
}

func TestNonFiniteCenterRejected(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/scene", "/view"} {
		for _, body := range []string{
			`{"center": {"lat": "NaN", "lon": "28.97"}}`,
			`{"center": {"lat": "41", "lon": "+Inf"}}`,
		} {
			rec := env.do(http.MethodPost, target, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, target+" "+body)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		}
	}
	assert.Equal(t, orb.Bound{}, env.source.bound, "nothing is fetched")

	rec := env.do(http.MethodPost, "/radius/drag",
		`{"center": {"lat": 41.0082, "lon": 28.9784}, "handle": {"lat": "NaN", "lon": 30}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfiguredLayersAllOff(t *testing.T) {
	env := newTestEnv(t)
	off := false
	env.srv.opts.Defaults.Buildings = &off
	env.srv.opts.Defaults.Water = &off
	env.srv.opts.Defaults.Parks = &off

	rec := env.do(http.MethodPost, "/scene", `{"center": {"lat": 41.0082, "lon": 28.9784}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[sceneBody](t, rec)
	assert.Equal(t, 1, body.Report.Built, "only the road is built")
	assert.Equal(t, 1, body.Report.Dropped["layer_hidden"])

	var settings struct {
		Layers map[string]bool `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(env.do(http.MethodGet, "/settings/default", "").Body.Bytes(), &settings))
	assert.False(t, settings.Layers["buildings"])
	assert.False(t, settings.Layers["parks"])
	assert.True(t, settings.Layers["roads"])
}
