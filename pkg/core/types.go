// Package core holds the identity and pose types shared across the bridge.
package core

import "fmt"

// VehicleID is the identity the traffic simulation assigns to a vehicle.
// Unique among currently-live vehicles only; SUMO may reuse an ID after
// the original vehicle has left the network.
type VehicleID string

// World identifies one of the two target worlds.
type World int

const (
	WorldA World = iota
	WorldB
)

// Worlds lists both target worlds in reconciliation order.
var Worlds = [2]World{WorldA, WorldB}

func (w World) String() string {
	switch w {
	case WorldA:
		return "A"
	case WorldB:
		return "B"
	default:
		return fmt.Sprintf("World(%d)", int(w))
	}
}

// SourcePose is a vehicle pose in the source (SUMO) frame.
// Angle is a navigational heading in degrees, 0 = north, clockwise-positive.
type SourcePose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Transform is a vehicle pose in a target-world frame.
// Yaw is in degrees, 0 = +X axis, clockwise-positive (CARLA convention).
type Transform struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}
