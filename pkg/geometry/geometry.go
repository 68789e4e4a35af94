// Package geometry provides the pose types and planar distance math shared
// by the patrol stack. Poses use map-frame coordinates in meters.
package geometry

import "math"

// Point is a position in the map frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation in the map frame.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose combines a position and an orientation.
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// Identity returns a pose at the origin facing forward.
func Identity() Pose {
	return Pose{Orientation: Quaternion{W: 1}}
}

// PlanarDistance returns the Euclidean distance between a and b in the
// ground plane. The z component is ignored: navigation goals share the
// robot's floor even when a pose carries height.
func PlanarDistance(a, b Pose) float64 {
	dx := a.Position.X - b.Position.X
	dy := a.Position.Y - b.Position.Y
	return math.Sqrt(dx*dx + dy*dy)
}
