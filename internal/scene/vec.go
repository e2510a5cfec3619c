package scene

import "github.com/cybre/backdrop-sync/internal/utils"

// Vec3 is a camera or light position.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// LerpVec3 interpolates each component.
func LerpVec3(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: utils.Lerp(a.X, b.X, t),
		Y: utils.Lerp(a.Y, b.Y, t),
		Z: utils.Lerp(a.Z, b.Z, t),
	}
}

// Waypoint is the camera pose and light position for one step.
type Waypoint struct {
	Camera Vec3 `yaml:"camera" json:"camera"`
	Light  Vec3 `yaml:"light" json:"light"`
}

// DefaultWaypoints is a slow dolly toward the model with the light
// swinging overhead.
func DefaultWaypoints() []Waypoint {
	return []Waypoint{
		{Camera: Vec3{0, 0.2, 6}, Light: Vec3{-3, 4, 2}},
		{Camera: Vec3{0.8, 0.4, 5}, Light: Vec3{-1.5, 4.5, 2.5}},
		{Camera: Vec3{1.2, 0.6, 4.2}, Light: Vec3{0, 5, 3}},
		{Camera: Vec3{0.6, 0.9, 3.4}, Light: Vec3{1.5, 4.5, 2.5}},
		{Camera: Vec3{-0.4, 1.1, 2.8}, Light: Vec3{3, 4, 2}},
		{Camera: Vec3{0, 1.4, 2.2}, Light: Vec3{0, 6, 0.5}},
	}
}
