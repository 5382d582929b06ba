// Package world wraps one target world behind a capability handle: connect,
// lockstep settings, blueprint catalog, spawn/move/destroy and tick.
package world

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/pkg/core"
)

// Settings mirrors a target world's simulation settings. Captured on connect
// and restored on close.
type Settings struct {
	Synchronous bool    `json:"synchronous"`
	FixedDelta  float64 `json:"fixedDelta"`
}

// Actor is a handle to a spawned vehicle actor in one target world.
type Actor struct {
	ID uint64 `json:"id"`
}

// ConnectError is fatal: a target world that cannot be reached at startup
// aborts the whole bridge.
type ConnectError struct {
	Name string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to world %q: %v", e.Name, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Server is the wire-level surface of one target world. The production
// implementation lives in the wsadapter subpackage; tests use fakes.
type Server interface {
	GetSettings() (Settings, error)
	ApplySettings(Settings) error
	// Blueprints lists vehicle blueprint IDs matching the pattern.
	Blueprints(pattern string) ([]string, error)
	// TrySpawn returns (nil, nil) when the world rejects the spawn, e.g.
	// on collision at the requested transform.
	TrySpawn(blueprint string, role string, tf core.Transform) (*Actor, error)
	SetTransform(a Actor, tf core.Transform) error
	Destroy(a Actor) error
	Tick() error
	Close() error
}

// Handle owns the lifecycle of one connected target world.
type Handle struct {
	world core.World
	name  string
	srv   Server
	log   zerolog.Logger

	blueprints []string
	saved      Settings
	closed     bool
}

// BlueprintPattern filters the world's catalog to drivable vehicles.
const BlueprintPattern = "vehicle.*"

// New captures the world's current settings, switches it to synchronous
// fixed-step mode with the given delta and loads the blueprint catalog.
// Any failure here is fatal startup state and is returned as-is.
func New(w core.World, name string, srv Server, stepLength float64, log zerolog.Logger) (*Handle, error) {
	h := &Handle{
		world: w,
		name:  name,
		srv:   srv,
		log:   log.With().Str("world", w.String()).Str("name", name).Logger(),
	}

	saved, err := srv.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("capturing settings of world %s: %w", w, err)
	}
	h.saved = saved

	if err := srv.ApplySettings(Settings{Synchronous: true, FixedDelta: stepLength}); err != nil {
		return nil, fmt.Errorf("applying sync settings to world %s: %w", w, err)
	}

	bps, err := srv.Blueprints(BlueprintPattern)
	if err != nil {
		return nil, fmt.Errorf("listing blueprints of world %s: %w", w, err)
	}
	if len(bps) == 0 {
		return nil, fmt.Errorf("world %s has no vehicle blueprints", w)
	}
	h.blueprints = bps

	h.log.Info().Int("blueprints", len(bps)).Float64("fixedDelta", stepLength).
		Msg("World ready in synchronous mode")
	return h, nil
}

// World returns which of the two target worlds this handle drives.
func (h *Handle) World() core.World { return h.world }

// Tick advances the world by one fixed step.
func (h *Handle) Tick() error {
	if err := h.srv.Tick(); err != nil {
		return fmt.Errorf("ticking world %s: %w", h.world, err)
	}
	return nil
}

// Move pushes a new transform to a live actor.
func (h *Handle) Move(a Actor, tf core.Transform) error {
	return h.srv.SetTransform(a, tf)
}

// Close restores the originally captured settings best-effort and closes the
// connection. Safe to call more than once.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	h.closed = true

	if err := h.srv.ApplySettings(h.saved); err != nil {
		// the world may already be gone; restoration is best-effort
		h.log.Warn().Err(err).Msg("Failed to restore world settings")
	} else {
		h.log.Info().Msg("Restored original world settings")
	}

	if err := h.srv.Close(); err != nil {
		h.log.Debug().Err(err).Msg("Error closing world connection")
	}
}
