package preview

import "math"

// Drag tracks a pointer drag of the camera marker.
type Drag struct {
	active bool
	offset Point
}

// Start begins a drag if mouse is within HandleRadius of the camera marker.
// The grab offset is kept so the marker does not jump under the pointer.
func (d *Drag) Start(canvas Size, cam CameraParams, mouse Point) bool {
	camPos := CameraPosition(canvas, cam)
	if mouse.dist(camPos) > HandleRadius {
		return false
	}
	d.active = true
	d.offset = Point{X: mouse.X - camPos.X, Y: mouse.Y - camPos.Y}
	return true
}

// Move returns the camera look-from x and y for the pointer position,
// rounded to whole meters. ok is false when no drag is active.
func (d *Drag) Move(canvas Size, mouse Point) (x, y float64, ok bool) {
	if !d.active {
		return 0, 0, false
	}
	c := canvas.Center()
	camX := mouse.X - d.offset.X
	camY := mouse.Y - d.offset.Y
	return math.Round((camX - c.X) / Scale), math.Round((camY - c.Y) / Scale), true
}

// End stops the drag. Pointer up and pointer leave both end it.
func (d *Drag) End() {
	d.active = false
	d.offset = Point{}
}

// Active reports whether a drag is in progress.
func (d *Drag) Active() bool { return d.active }

// Hover reports whether mouse is close enough to grab the camera marker.
func Hover(canvas Size, cam CameraParams, mouse Point) bool {
	return mouse.dist(CameraPosition(canvas, cam)) <= HandleRadius
}
