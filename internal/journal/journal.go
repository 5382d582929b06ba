// Package journal persists per-step vehicle states and actor lifecycle
// events for later analysis. Records are buffered in queues and flushed by a
// background worker so the synchronizer loop never waits on the database.
package journal

import (
	"github.com/dualcarla/bridge/internal/model"
)

// Backend is the interface all journal implementations satisfy. Record
// methods never block and never fail; persistence errors are logged by the
// implementation.
type Backend interface {
	// StartRun persists the run header and starts the flush worker.
	StartRun(run *model.Run) error
	// RecordVehicleState buffers one post-transform vehicle pose.
	RecordVehicleState(s model.VehicleState)
	// RecordSyncEvent buffers one actor lifecycle event.
	RecordSyncEvent(e model.SyncEvent)
	// QueueDepth reports buffered records not yet flushed.
	QueueDepth() int
	// EndRun flushes everything, stamps the run footer and stops the worker.
	EndRun(steps uint64) error
	Close() error
}

// Nop discards every record. Used when no journal is configured.
type Nop struct{}

func (Nop) StartRun(*model.Run) error             { return nil }
func (Nop) RecordVehicleState(model.VehicleState) {}
func (Nop) RecordSyncEvent(model.SyncEvent)       {}
func (Nop) QueueDepth() int                       { return 0 }
func (Nop) EndRun(uint64) error                   { return nil }
func (Nop) Close() error                          { return nil }
