// Package preview lays out the flat camera diagram: a look-at marker at the
// canvas center, the camera at a scaled offset and its field-of-view wedge.
package preview

import (
	"fmt"
	"math"

	"kuanb/gosm-scene/geom"
)

const (
	// Scale maps scene meters to canvas pixels.
	Scale = 0.15
	// HandleRadius is the grab distance around the camera marker, in pixels.
	HandleRadius = 15.0
	// GridSpacing and GridHalfLines give 11 grid lines each way.
	GridSpacing   = 50.0
	GridHalfLines = 5
)

// Size is a canvas size in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the canvas midpoint.
func (s Size) Center() Point { return Point{X: s.Width / 2, Y: s.Height / 2} }

// Point is a canvas position; Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// CameraParams are the renderer camera settings driving the diagram.
type CameraParams struct {
	LookFromX float64 `json:"x"`
	LookFromY float64 `json:"y"`
	LookFromZ float64 `json:"z"`
	FOV       float64 `json:"fov"`
	Radius    float64 `json:"radius"`
	Theta     float64 `json:"theta"`
	Phi       float64 `json:"phi"`
}

// Line is a straight segment on the canvas.
type Line struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Label is text anchored at a canvas position.
type Label struct {
	Text string `json:"text"`
	At   Point  `json:"at"`
}

// Wedge is the field-of-view sector. Angles are canvas radians.
type Wedge struct {
	Apex   Point   `json:"apex"`
	Radius float64 `json:"radius"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

// Outline returns the closed sector polygon with the arc sampled in n steps.
func (w Wedge) Outline(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, 0, n+3)
	pts = append(pts, w.Apex)
	for i := 0; i <= n; i++ {
		a := w.Start + (w.End-w.Start)*float64(i)/float64(n)
		pts = append(pts, Point{X: w.Apex.X + math.Cos(a)*w.Radius, Y: w.Apex.Y + math.Sin(a)*w.Radius})
	}
	return append(pts, w.Apex)
}

// Frame is everything needed to draw one diagram.
type Frame struct {
	Canvas    Size    `json:"canvas"`
	Grid      []Line  `json:"grid"`
	LookAt    Point   `json:"lookat"`
	Camera    Point   `json:"camera"`
	Sightline Line    `json:"sightline"`
	Wedge     Wedge   `json:"wedge"`
	Direction string  `json:"direction"`
	Arrow     string  `json:"arrow"`
	Labels    []Label `json:"labels"`
}

// CameraPosition returns where the camera marker sits on the canvas.
func CameraPosition(canvas Size, cam CameraParams) Point {
	c := canvas.Center()
	return Point{X: c.X + cam.LookFromX*Scale, Y: c.Y + cam.LookFromY*Scale}
}

// Project lays out the diagram for cam on a canvas of the given size.
func Project(canvas Size, cam CameraParams) Frame {
	lookAt := canvas.Center()
	camPos := CameraPosition(canvas, cam)

	angle := math.Atan2(lookAt.Y-camPos.Y, lookAt.X-camPos.X)
	half := cam.FOV * math.Pi / 180 / 2

	// the compass math runs in canvas space, with y as the northing
	dir := geom.DirectionFromDegrees(geom.Bearing(
		geom.Planar{X: camPos.X, Z: camPos.Y},
		geom.Planar{X: lookAt.X, Z: lookAt.Y},
	))

	mid := Point{X: (camPos.X + lookAt.X) / 2, Y: (camPos.Y + lookAt.Y) / 2}

	return Frame{
		Canvas:    canvas,
		Grid:      grid(canvas),
		LookAt:    lookAt,
		Camera:    camPos,
		Sightline: Line{From: camPos, To: lookAt},
		Wedge: Wedge{
			Apex:   camPos,
			Radius: cam.Radius * Scale,
			Start:  angle - half,
			End:    angle + half,
		},
		Direction: dir.String(),
		Arrow:     dir.Arrow(),
		Labels: []Label{
			{Text: "Lookat (0,0,0)", At: Point{X: lookAt.X + 15, Y: lookAt.Y - 10}},
			{Text: "Camera", At: Point{X: camPos.X + 15, Y: camPos.Y - 10}},
			{Text: fmt.Sprintf("Z: %gm", cam.LookFromZ), At: Point{X: camPos.X + 15, Y: camPos.Y + 5}},
			{Text: fmt.Sprintf("Camera Direction: %s %s", dir, dir.Arrow()), At: Point{X: 20, Y: 30}},
			{Text: fmt.Sprintf("Radius: %g", cam.Radius), At: Point{X: mid.X, Y: mid.Y - 10}},
		},
	}
}

func grid(canvas Size) []Line {
	c := canvas.Center()
	lines := make([]Line, 0, 2*(2*GridHalfLines+1))
	for i := -GridHalfLines; i <= GridHalfLines; i++ {
		off := float64(i) * GridSpacing
		lines = append(lines,
			Line{From: Point{X: c.X + off, Y: 0}, To: Point{X: c.X + off, Y: canvas.Height}},
			Line{From: Point{X: 0, Y: c.Y + off}, To: Point{X: canvas.Width, Y: c.Y + off}},
		)
	}
	return lines
}
