// Package zone decides which target worlds must host a vehicle based on its
// target-frame position. The interval [Start, End] on the configured axis is
// the buffer zone: inside it a vehicle exists in both worlds at once so the
// handoff between them has no visible pop.
package zone

import (
	"strings"

	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/pkg/core"
)

// Axis selects which target-frame coordinate the classifier compares.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// ParseAxis converts a config axis string ("x" or "y") to an Axis.
// Returns AxisX, false on anything else.
func ParseAxis(s string) (Axis, bool) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, true
	case "y":
		return AxisY, true
	default:
		return AxisX, false
	}
}

// Membership is the set of worlds a vehicle must occupy, indexed by
// core.World. It is never empty: classification always yields at least
// one world.
type Membership [2]bool

// Has reports whether world w is in the set.
func (m Membership) Has(w core.World) bool {
	return m[w]
}

// Dual reports whether the vehicle is inside the buffer zone.
func (m Membership) Dual() bool {
	return m[core.WorldA] && m[core.WorldB]
}

func (m Membership) String() string {
	switch {
	case m.Dual():
		return "{A,B}"
	case m[core.WorldA]:
		return "{A}"
	case m[core.WorldB]:
		return "{B}"
	default:
		return "{}"
	}
}

// Classifier assigns world membership from target-frame positions.
type Classifier struct {
	axis  Axis
	start float64
	end   float64
}

// NewClassifier builds a classifier from the validated zone config.
func NewClassifier(cfg config.ZoneConfig) Classifier {
	axis, _ := ParseAxis(cfg.Axis)
	return Classifier{axis: axis, start: cfg.Start, end: cfg.End}
}

// Classify returns the membership set for a target-frame pose. Values below
// Start belong to world A only, above End to world B only, and the inclusive
// interval [Start, End] to both.
func (c Classifier) Classify(tf core.Transform) Membership {
	v := tf.X
	if c.axis == AxisY {
		v = tf.Y
	}
	switch {
	case v < c.start:
		return Membership{core.WorldA: true}
	case v > c.end:
		return Membership{core.WorldB: true}
	default:
		return Membership{core.WorldA: true, core.WorldB: true}
	}
}
