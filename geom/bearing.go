package geom

import "math"

// Direction is one of the eight compass sectors.
type Direction int

const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
)

var directionNames = [...]string{
	"North", "Northeast", "East", "Southeast",
	"South", "Southwest", "West", "Northwest",
}

var directionArrows = [...]string{"⬆️", "↗️", "➡️", "↘️", "⬇️", "↙️", "⬅️", "↖️"}

func (d Direction) String() string {
	if d < North || d > Northwest {
		return "Unknown"
	}
	return directionNames[d]
}

// Arrow is the emoji used next to the label in the camera preview.
func (d Direction) Arrow() string {
	if d < North || d > Northwest {
		return ""
	}
	return directionArrows[d]
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	return n
}

// DirectionFromDegrees buckets a bearing into 45 degree sectors centered on
// the compass points. A bearing exactly on a sector boundary belongs to the
// sector with the higher angle.
func DirectionFromDegrees(deg float64) Direction {
	n := NormalizeDegrees(deg)
	return Direction(int(math.Floor((n+22.5)/45)) % 8)
}

// Bearing returns atan2(dx, dy) in degrees, normalized to [0, 360).
func Bearing(from, to Planar) float64 {
	dx := to.X - from.X
	dy := to.Z - from.Z
	return NormalizeDegrees(math.Atan2(dx, dy) * 180 / math.Pi)
}

// BearingDirectionName labels the direction from one planar pair to another.
// The second coordinate is treated as the "northing", so this works equally
// for (lon, lat) pairs and for screen coordinates.
func BearingDirectionName(from, to Planar) string {
	return DirectionFromDegrees(Bearing(from, to)).String()
}
