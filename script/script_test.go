package script

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, s Settings) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s, time.Date(2026, 3, 5, 14, 7, 9, 0, time.UTC)))
	return buf.String()
}

func TestRenderDefaults(t *testing.T) {
	out := render(t, DefaultSettings())

	assert.Contains(t, out, "# Created: 3/5/2026, 2:07:09 PM\n")
	assert.Contains(t, out, "lon <- 28.9784\nlat <- 41.0082\n")
	assert.Contains(t, out, "radius <- 1000\n")
	assert.Contains(t, out, "lookfrom <- c(0, 650, 1000)\n")
	assert.Contains(t, out, "fov = 60,")
	assert.Contains(t, out, "width = 1920,")
	assert.Contains(t, out, "denoise = TRUE,")
	assert.Contains(t, out, `col_bld_mid <- "#cfc8b8"`)
	assert.Contains(t, out, "sf::st_buffer(roads, 1.73913043478260")
	assert.Contains(t, out, "bld$`building:levels`")
	assert.Contains(t, out, "message(\"Fetching buildings...\")\nbld <- get_polys(")
	assert.NotContains(t, out, "layer disabled")
	assert.NotContains(t, out, "{{")

	assert.Equal(t, RenderParams{Width: 1920, Height: 1080, Samples: 256, Denoise: true, Ambient: true}, DefaultSettings().Render)
}

func TestRenderLayerToggles(t *testing.T) {
	s := DefaultSettings()
	s.Layers.Buildings = false
	s.Layers.Rails = false
	s.Render.Ambient = false
	out := render(t, s)

	assert.Contains(t, out, "# Buildings layer disabled\nbld <- sf::st_sf(geometry = sf::st_sfc(crs = 4326))\n")
	assert.Contains(t, out, "# Railways layer disabled\n")
	assert.NotContains(t, out, "Fetching buildings")
	assert.Contains(t, out, "Fetching roads")
	assert.Contains(t, out, "ambient_light = FALSE,")
}

func TestExportImportRoundTrip(t *testing.T) {
	s := DefaultSettings()
	s.Center = Center{Lat: 48.8584, Lon: 2.2945}
	s.ApplyPreset(presets["dramatic"])

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, s))
	assert.Contains(t, buf.String(), `"bldLow": "#e0dccf"`)

	got, err := Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestImportBrowserExport(t *testing.T) {
	// values exported from form inputs arrive as strings
	in := `{
	  "center": {"lat": "41.025600", "lon": "28.974100"},
	  "camera": {"x": "-800", "y": "400", "z": "300", "fov": "45", "radius": "9000", "theta": "0", "phi": ""},
	  "layers": {"buildings": true, "parks": false, "water": true, "roads": true, "rails": false, "landuse": false},
	  "colors": {"bldLow": "#AABBCC", "bldMid": "red;system('rm')", "park": "#00ff00"},
	  "render": {"width": "1080", "height": "1920", "samples": "128", "denoise": false, "ambient": true}
	}`
	s, err := Import(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, Number(41.0256), s.Center.Lat)
	assert.Equal(t, Number(-800), s.Camera.X)
	assert.Equal(t, Number(3000), s.Camera.Radius, "radius is clamped")
	assert.Equal(t, Number(0), s.Camera.Phi)
	assert.False(t, s.Layers.Parks)
	assert.Equal(t, "#aabbcc", s.Colors.BuildingLow)
	assert.Equal(t, DefaultSettings().Colors.BuildingMid, s.Colors.BuildingMid)
	assert.Equal(t, DefaultSettings().Colors.Water, s.Colors.Water, "missing keys keep defaults")
	assert.Equal(t, Number(1080), s.Render.Width)
	assert.Equal(t, DefaultSettings().Light, s.Light)

	_, err = Import(strings.NewReader(`{"camera": {"x": "left"}}`))
	assert.Error(t, err)
}

func TestImportRejectsNonFinite(t *testing.T) {
	for _, v := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`} {
		_, err := Import(strings.NewReader(`{"center": {"lat": ` + v + `}}`))
		assert.Error(t, err, v)
	}
}

func TestPresets(t *testing.T) {
	names := make([]string, 0)
	for _, p := range Presets() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"aerial", "bird", "dramatic", "street"}, names)

	p, ok := LookupPreset("street")
	require.True(t, ok)
	s := DefaultSettings()
	s.Camera.Theta = 15
	s.ApplyPreset(p)
	assert.Equal(t, Camera{X: 0, Y: 100, Z: 200, FOV: 80, Radius: 500, Theta: 15, Phi: 30}, s.Camera)

	_, ok = LookupPreset("orbit")
	assert.False(t, ok)
}

func TestAspectRatios(t *testing.T) {
	cases := map[string][2]int{
		"16:9": {1920, 1080}, "1:1": {1800, 1800}, "4:3": {1600, 1200},
		"21:9": {2560, 1080}, "9:16": {1080, 1920},
	}
	for name, want := range cases {
		s := DefaultSettings()
		require.True(t, s.SetAspect(name), name)
		assert.Equal(t, Number(want[0]), s.Render.Width, name)
		assert.Equal(t, Number(want[1]), s.Render.Height, name)
	}

	s := DefaultSettings()
	s.Render.Width = 1234
	assert.False(t, s.SetAspect("custom"))
	assert.Equal(t, Number(1234), s.Render.Width)
}

func TestSettingsPalette(t *testing.T) {
	s := DefaultSettings()
	s.Colors.Water = "#010203"
	p := s.Palette()
	assert.Equal(t, "#010203", p.Water.Color)
	assert.Equal(t, "#cfc8b8", p.Building.Color)
}
