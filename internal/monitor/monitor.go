// Package monitor runs a background goroutine reporting loop health to
// InfluxDB: completed steps, tracked vehicles, last step duration and the
// journal queue depth.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/internal/influx"
	"github.com/dualcarla/bridge/internal/journal"
	"github.com/dualcarla/bridge/internal/registry"
)

// Stats is updated by the synchronizer loop and read by the monitor.
type Stats struct {
	steps      atomic.Uint64
	lastStepNs atomic.Int64
}

// RecordStep notes one completed step and its duration.
func (s *Stats) RecordStep(d time.Duration) {
	s.steps.Add(1)
	s.lastStepNs.Store(int64(d))
}

// Steps returns the number of completed steps.
func (s *Stats) Steps() uint64 {
	return s.steps.Load()
}

// LastStepDuration returns the duration of the most recent step.
func (s *Stats) LastStepDuration() time.Duration {
	return time.Duration(s.lastStepNs.Load())
}

// Dependencies holds everything the monitor samples.
type Dependencies struct {
	Influx   *influx.Manager
	Journal  journal.Backend
	Registry *registry.Registry
	Stats    *Stats
	Interval time.Duration
	Logger   zerolog.Logger
}

// Service manages the status monitor goroutine.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine.
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug().Msg("Starting status monitor goroutine")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()
}

// report samples the loop and ships one point.
func (s *Service) report() {
	point := influxdb2.NewPointWithMeasurement("bridge_step").
		AddField("steps", int64(s.deps.Stats.Steps())).
		AddField("vehicles", int64(s.deps.Registry.Len())).
		AddField("lastStepMs", float64(s.deps.Stats.LastStepDuration().Microseconds())/1000.0).
		AddField("journalQueueDepth", int64(s.deps.Journal.QueueDepth())).
		SetTime(time.Now())

	if err := s.deps.Influx.WritePoint(point); err != nil {
		s.deps.Logger.Error().Err(err).Msg("Failed to report step metrics")
	}
}

// Stop stops the status monitor. isRunning flips here, not in the goroutine,
// so concurrent Stop calls cannot close the channel twice.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
		s.isRunning = false
	}
}
