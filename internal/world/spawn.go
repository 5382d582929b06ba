package world

import (
	"github.com/cespare/xxhash/v2"

	"github.com/dualcarla/bridge/pkg/core"
)

// zBump is added to the spawn height on the single retry after a rejected
// spawn. Worlds reject spawns that collide with the ground mesh when the
// configured z-offset sits too low.
const zBump = 0.5

// SpawnResult reports the outcome of one spawn protocol run.
type SpawnResult struct {
	Actor  *Actor // nil when both attempts failed
	Bumped bool   // the z-bump retry produced the actor
	Err    error  // last transport error, informational only
}

// OK reports whether an actor was spawned.
func (r SpawnResult) OK() bool { return r.Actor != nil }

// DestroyResult reports the outcome of a destroy request.
type DestroyResult int

const (
	// DestroyOk means the world acknowledged the destroy.
	DestroyOk DestroyResult = iota
	// DestroyAlreadyGone means the destroy failed; the actor is presumed
	// already removed or unreachable and the handle is dropped anyway.
	DestroyAlreadyGone
)

// BlueprintIndex deterministically maps a vehicle identity onto a blueprint
// catalog index, so the same vehicle looks the same in both worlds and
// across steps.
func BlueprintIndex(id core.VehicleID, catalogSize int) int {
	return int(xxhash.Sum64String(string(id)) % uint64(catalogSize))
}

// Spawn runs the spawn protocol: pick the deterministic blueprint, attempt
// the spawn, and retry exactly once with a raised z on rejection. It never
// returns an error; a failed spawn simply leaves the caller's slot empty so
// the next reconciliation pass retries.
func (h *Handle) Spawn(id core.VehicleID, tf core.Transform) SpawnResult {
	bp := h.blueprints[BlueprintIndex(id, len(h.blueprints))]

	actor, err := h.srv.TrySpawn(bp, string(id), tf)
	if err == nil && actor != nil {
		return SpawnResult{Actor: actor}
	}

	bumped := tf
	bumped.Z += zBump
	retryActor, retryErr := h.srv.TrySpawn(bp, string(id), bumped)
	if retryErr == nil && retryActor != nil {
		return SpawnResult{Actor: retryActor, Bumped: true}
	}

	if retryErr == nil {
		retryErr = err
	}
	h.log.Debug().Str("vehicle", string(id)).Str("blueprint", bp).Err(retryErr).
		Msg("Spawn failed after z-bump retry")
	return SpawnResult{Err: retryErr}
}

// DestroyActor removes an actor from the world. Failures are swallowed:
// the actor is being removed regardless, and leaking a handle beats a
// retry loop against a world that already dropped it.
func (h *Handle) DestroyActor(a Actor) DestroyResult {
	if err := h.srv.Destroy(a); err != nil {
		h.log.Debug().Uint64("actor", a.ID).Err(err).Msg("Destroy failed, presuming actor gone")
		return DestroyAlreadyGone
	}
	return DestroyOk
}
