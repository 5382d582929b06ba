// Package bridge drives the lockstep synchronization loop: advance the
// source simulation, reconcile every vehicle into the two target worlds and
// tick both worlds so they render the step together.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/internal/journal"
	"github.com/dualcarla/bridge/internal/model"
	"github.com/dualcarla/bridge/internal/monitor"
	"github.com/dualcarla/bridge/internal/registry"
	"github.com/dualcarla/bridge/internal/sumo"
	"github.com/dualcarla/bridge/internal/telemetry"
	"github.com/dualcarla/bridge/internal/transform"
	"github.com/dualcarla/bridge/internal/world"
	"github.com/dualcarla/bridge/internal/zone"
	"github.com/dualcarla/bridge/pkg/core"
)

// StepError is any failure inside one synchronization step. Step failures
// are fatal: the lockstep contract is broken once a step half-applies.
type StepError struct {
	Step uint64
	Op   string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s: %v", e.Step, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Config wires the synchronizer's collaborators.
type Config struct {
	Engine      sumo.Engine
	Worlds      [2]*world.Handle
	Transformer transform.Transformer
	Classifier  zone.Classifier
	Registry    *registry.Registry
	Journal     journal.Backend
	Metrics     *telemetry.Metrics
	Stats       *monitor.Stats
	Logger      zerolog.Logger
}

// Synchronizer owns the step loop. It is single threaded; only the monitor
// reads the registry and stats concurrently.
type Synchronizer struct {
	engine      sumo.Engine
	worlds      [2]*world.Handle
	transformer transform.Transformer
	classifier  zone.Classifier
	registry    *registry.Registry
	journal     journal.Backend
	metrics     *telemetry.Metrics
	stats       *monitor.Stats
	log         zerolog.Logger

	steps     uint64
	closeOnce sync.Once
}

// New creates a synchronizer. Journal and Stats may be left nil.
func New(cfg Config) *Synchronizer {
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Stats == nil {
		cfg.Stats = &monitor.Stats{}
	}
	return &Synchronizer{
		engine:      cfg.Engine,
		worlds:      cfg.Worlds,
		transformer: cfg.Transformer,
		classifier:  cfg.Classifier,
		registry:    cfg.Registry,
		journal:     cfg.Journal,
		metrics:     cfg.Metrics,
		stats:       cfg.Stats,
		log:         cfg.Logger,
	}
}

// Steps returns the number of completed steps.
func (s *Synchronizer) Steps() uint64 { return s.steps }

// Run executes steps until the context is cancelled. A cancelled context is
// a clean shutdown and returns nil; any step failure is returned as-is.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.log.Info().Msg("Starting synchronization loop")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Uint64("steps", s.steps).Msg("Synchronization loop stopped")
			return nil
		default:
		}

		start := time.Now()
		if err := s.Step(ctx); err != nil {
			return err
		}
		elapsed := time.Since(start)

		s.stats.RecordStep(elapsed)
		if s.metrics != nil {
			s.metrics.RecordStep(ctx, elapsed, s.registry.Len())
		}
	}
}

// Step runs exactly one synchronization step: advance the source, reconcile
// every vehicle, then tick both worlds. Mutations never interleave with
// ticks, so each world renders the step atomically.
func (s *Synchronizer) Step(ctx context.Context) error {
	if err := s.engine.Step(); err != nil {
		return &StepError{Step: s.steps, Op: "advancing source simulation", Err: err}
	}

	ids, err := s.engine.VehicleIDs()
	if err != nil {
		return &StepError{Step: s.steps, Op: "listing vehicles", Err: err}
	}

	live := make(map[core.VehicleID]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}

	// vehicles gone from the source leave both worlds before any
	// per-vehicle work touches the registry
	s.removeVanished(ctx, live)

	now := time.Now().UTC()
	for _, id := range ids {
		if err := s.syncVehicle(ctx, id, now); err != nil {
			return &StepError{Step: s.steps, Op: fmt.Sprintf("syncing vehicle %s", id), Err: err}
		}
	}

	for _, h := range s.worlds {
		if err := h.Tick(); err != nil {
			return &StepError{Step: s.steps, Op: "ticking worlds", Err: err}
		}
	}

	s.steps++
	return nil
}

// removeVanished destroys every actor of vehicles no longer reported by the
// source and drops their registry entries.
func (s *Synchronizer) removeVanished(ctx context.Context, live map[core.VehicleID]struct{}) {
	now := time.Now().UTC()
	for _, id := range s.registry.Vanished(live) {
		entry, ok := s.registry.Get(id)
		if !ok {
			continue
		}
		for _, w := range core.Worlds {
			if a := entry.Actor(w); a != nil {
				s.destroyActor(ctx, id, w, *a, now)
				entry.ClearSlot(w)
			}
		}
		s.registry.Delete(id)
		s.journal.RecordSyncEvent(model.SyncEvent{
			Time: now, Step: s.steps, VehicleID: string(id), Event: model.EventVanished,
		})
		s.log.Debug().Str("vehicle", string(id)).Msg("Vehicle left the source simulation")
	}
}

// syncVehicle reconciles one vehicle: transform its pose, classify zone
// membership, then spawn or move in member worlds before destroying in the
// world it left, so a handoff never leaves the vehicle absent everywhere.
func (s *Synchronizer) syncVehicle(ctx context.Context, id core.VehicleID, now time.Time) error {
	pose, err := s.engine.Pose(id)
	if err != nil {
		return err
	}

	tf := s.transformer.Transform(pose)
	membership := s.classifier.Classify(tf)
	entry := s.registry.Entry(id)

	for _, w := range core.Worlds {
		if !membership.Has(w) {
			continue
		}
		h := s.worlds[w]
		if a := entry.Actor(w); a != nil {
			if err := h.Move(*a, tf); err != nil {
				// the actor may have despawned under us; the next step
				// respawns it after the slot is cleared
				s.log.Warn().Str("vehicle", string(id)).Stringer("world", w).Err(err).
					Msg("Failed to move actor")
				s.destroyActor(ctx, id, w, *a, now)
				entry.ClearSlot(w)
			}
			continue
		}

		res := h.Spawn(id, tf)
		if !res.OK() {
			if s.metrics != nil {
				s.metrics.RecordSpawnFailure(ctx, w)
			}
			s.journal.RecordSyncEvent(model.SyncEvent{
				Time: now, Step: s.steps, VehicleID: string(id), World: w.String(),
				Event: model.EventSpawnFailed,
			})
			s.log.Warn().Str("vehicle", string(id)).Stringer("world", w).Err(res.Err).
				Msg("Spawn failed, retrying next step")
			continue
		}
		entry.SetActor(w, res.Actor)
		if s.metrics != nil {
			s.metrics.RecordSpawn(ctx, w)
		}
		event := model.EventSpawn
		if res.Bumped {
			event = model.EventSpawnBumped
		}
		s.journal.RecordSyncEvent(model.SyncEvent{
			Time: now, Step: s.steps, VehicleID: string(id), World: w.String(),
			Event: event, ActorID: res.Actor.ID,
		})
	}

	for _, w := range core.Worlds {
		if membership.Has(w) {
			continue
		}
		if a := entry.Actor(w); a != nil {
			s.destroyActor(ctx, id, w, *a, now)
			entry.ClearSlot(w)
		}
	}

	s.journal.RecordVehicleState(model.VehicleState{
		Time:           now,
		Step:           s.steps,
		VehicleID:      string(id),
		SourcePosition: model.Point(pose.X, pose.Y),
		TargetPosition: model.Point(tf.X, tf.Y),
		Yaw:            tf.Yaw,
		Membership:     model.JSONStrings(membershipNames(membership)),
	})
	return nil
}

func (s *Synchronizer) destroyActor(ctx context.Context, id core.VehicleID, w core.World, a world.Actor, now time.Time) {
	s.worlds[w].DestroyActor(a)
	if s.metrics != nil {
		s.metrics.RecordDestroy(ctx, w)
	}
	s.journal.RecordSyncEvent(model.SyncEvent{
		Time: now, Step: s.steps, VehicleID: string(id), World: w.String(),
		Event: model.EventDestroy, ActorID: a.ID,
	})
}

func membershipNames(m zone.Membership) []string {
	var names []string
	for _, w := range core.Worlds {
		if m.Has(w) {
			names = append(names, w.String())
		}
	}
	return names
}

// Close tears the bridge down: both worlds get their captured settings back
// and the source connection is closed. Safe to call more than once.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		for _, h := range s.worlds {
			h.Close()
		}
		if err := s.engine.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Error closing source connection")
		}
		s.log.Info().Msg("Bridge closed")
	})
}
