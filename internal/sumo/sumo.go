// Package sumo defines the surface the bridge needs from the authoritative
// traffic simulation. The traci subpackage provides the TCP implementation;
// tests use fakes.
package sumo

import "github.com/dualcarla/bridge/pkg/core"

// Engine is the source simulation seen from the bridge. Every call is
// expected to return within the transport's configured timeout; errors after
// a successful connect are fatal to the run.
type Engine interface {
	// Step advances the simulation by one configured step length.
	Step() error
	// VehicleIDs lists the vehicles currently live in the simulation.
	VehicleIDs() ([]core.VehicleID, error)
	// Pose returns the current source-frame pose of one vehicle.
	Pose(id core.VehicleID) (core.SourcePose, error)
	Close() error
}
