package preview

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canvas = Size{Width: 800, Height: 600}

func TestProjectPositions(t *testing.T) {
	f := Project(canvas, CameraParams{LookFromX: 200, LookFromY: -100, LookFromZ: 1000, FOV: 60, Radius: 1000})

	assert.Equal(t, Point{X: 400, Y: 300}, f.LookAt)
	assert.InDelta(t, 430, f.Camera.X, 1e-9)
	assert.InDelta(t, 285, f.Camera.Y, 1e-9)
	assert.Equal(t, Line{From: f.Camera, To: f.LookAt}, f.Sightline)

	assert.InDelta(t, 150, f.Wedge.Radius, 1e-9)
	assert.InDelta(t, math.Pi/3, f.Wedge.End-f.Wedge.Start, 1e-9)
	assert.Len(t, f.Grid, 22)
	assert.Equal(t, Line{From: Point{X: 150, Y: 0}, To: Point{X: 150, Y: 600}}, f.Grid[0])
}

func TestProjectDirection(t *testing.T) {
	cases := []struct {
		x, y float64
		want string
	}{
		// y grows downward, so a camera below the center looks toward -y
		{0, 100, "South"},
		{0, -100, "North"},
		{-100, 0, "East"},
		{100, 0, "West"},
		{-100, -100, "Northeast"},
		{100, 100, "Southwest"},
	}
	for _, tc := range cases {
		f := Project(canvas, CameraParams{LookFromX: tc.x, LookFromY: tc.y, FOV: 60, Radius: 500})
		assert.Equal(t, tc.want, f.Direction, "camera at %v,%v", tc.x, tc.y)
	}
}

func TestProjectLabels(t *testing.T) {
	f := Project(canvas, CameraParams{LookFromX: 0, LookFromY: 650, LookFromZ: 1000, FOV: 60, Radius: 1000})
	texts := make([]string, 0, len(f.Labels))
	for _, l := range f.Labels {
		texts = append(texts, l.Text)
	}
	assert.Contains(t, texts, "Z: 1000m")
	assert.Contains(t, texts, "Radius: 1000")
	assert.Contains(t, texts, "Camera Direction: South ⬇️")
}

func TestWedgeOutline(t *testing.T) {
	w := Wedge{Apex: Point{X: 10, Y: 10}, Radius: 5, Start: 0, End: math.Pi / 2}
	pts := w.Outline(4)

	require.Len(t, pts, 7)
	assert.Equal(t, w.Apex, pts[0])
	assert.Equal(t, w.Apex, pts[len(pts)-1])
	assert.InDelta(t, 15, pts[1].X, 1e-9)
	assert.InDelta(t, 15, pts[5].Y, 1e-9)
	for _, p := range pts[1 : len(pts)-1] {
		assert.InDelta(t, 5, p.dist(w.Apex), 1e-9)
	}

	assert.Len(t, w.Outline(0), 4)
}

func TestDragRoundTrip(t *testing.T) {
	cam := CameraParams{LookFromX: 200, LookFromY: 100}
	camPos := CameraPosition(canvas, cam)

	var d Drag
	assert.False(t, d.Start(canvas, cam, Point{X: camPos.X + 20, Y: camPos.Y}), "outside the handle")
	_, _, ok := d.Move(canvas, Point{})
	assert.False(t, ok)

	grab := Point{X: camPos.X + 3, Y: camPos.Y - 4}
	require.True(t, d.Start(canvas, cam, grab))
	assert.True(t, d.Active())

	// no movement keeps the camera where it was
	x, y, ok := d.Move(canvas, grab)
	require.True(t, ok)
	assert.Equal(t, 200.0, x)
	assert.Equal(t, 100.0, y)

	// 15 px right and 30 px up
	x, y, _ = d.Move(canvas, Point{X: grab.X + 15, Y: grab.Y - 30})
	assert.Equal(t, 300.0, x)
	assert.Equal(t, -100.0, y)

	d.End()
	assert.False(t, d.Active())
}

func TestDragRounds(t *testing.T) {
	var d Drag
	require.True(t, d.Start(canvas, CameraParams{}, Point{X: 400, Y: 300}))
	x, y, _ := d.Move(canvas, Point{X: 400.1, Y: 299.9})
	assert.Equal(t, 1.0, x)
	assert.Equal(t, -1.0, y)
}

func TestHover(t *testing.T) {
	cam := CameraParams{LookFromX: -100}
	camPos := CameraPosition(canvas, cam)
	assert.True(t, Hover(canvas, cam, Point{X: camPos.X + 14.9, Y: camPos.Y}))
	assert.False(t, Hover(canvas, cam, Point{X: camPos.X + 15.1, Y: camPos.Y}))
}
