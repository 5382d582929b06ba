// Package transform maps poses from the SUMO frame into the CARLA frame.
//
// Two calibration schemes are supported. The offset scheme subtracts the
// SUMO network origin offset; the boundary scheme remaps the SUMO network
// bounding box onto the target map bounding box. Both invert the Y axis,
// because CARLA's Y grows south while SUMO's grows north.
//
// Yaw conventions differ deliberately between the schemes: the offset scheme
// uses yaw' = -angle + 90 and the boundary scheme uses yaw' = angle - 90.
// Each matches the heading convention the corresponding calibration was
// validated against; flip the calibration scheme rather than editing the
// math if headings come out mirrored on a new map.
package transform

import (
	"errors"
	"fmt"

	"github.com/wroge/wgs84"

	"github.com/dualcarla/bridge/pkg/core"
)

// ErrCalibration marks invalid or degenerate calibration metadata.
// It is fatal at startup.
var ErrCalibration = errors.New("invalid calibration")

// Boundary is an axis-aligned bounding box.
type Boundary struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Width returns the X extent of the box.
func (b Boundary) Width() float64 { return b.MaxX - b.MinX }

// Height returns the Y extent of the box.
func (b Boundary) Height() float64 { return b.MaxY - b.MinY }

type scheme int

const (
	schemeOffset scheme = iota
	schemeBoundary
)

// Transformer converts source-frame poses to target-frame poses. It is pure
// and deterministic; all calibration parameters are fixed at construction.
type Transformer struct {
	scheme  scheme
	zOffset float64

	// offset scheme
	offsetX float64
	offsetY float64

	// boundary scheme
	conv Boundary
	orig Boundary
}

// NewOffset builds a transformer using the network-origin offset reported by
// the source simulation.
func NewOffset(offsetX, offsetY, zOffset float64) Transformer {
	return Transformer{
		scheme:  schemeOffset,
		zOffset: zOffset,
		offsetX: offsetX,
		offsetY: offsetY,
	}
}

// NewBoundary builds a transformer remapping the conv box onto the orig box.
// When projectGeo is set the orig box is treated as lon/lat degrees and its
// corners are projected to EPSG:3857 meters before the remap, so geo-referenced
// networks calibrate against a metric target frame.
func NewBoundary(conv, orig Boundary, zOffset float64, projectGeo bool) (Transformer, error) {
	if projectGeo {
		orig = projectBoundary3857(orig)
	}
	if conv.Width() == 0 || conv.Height() == 0 {
		return Transformer{}, fmt.Errorf("%w: conv boundary has zero extent", ErrCalibration)
	}
	if orig.Width() == 0 || orig.Height() == 0 {
		return Transformer{}, fmt.Errorf("%w: orig boundary has zero extent", ErrCalibration)
	}
	return Transformer{
		scheme:  schemeBoundary,
		zOffset: zOffset,
		conv:    conv,
		orig:    orig,
	}, nil
}

// projectBoundary3857 projects a lon/lat boundary to Web Mercator meters.
func projectBoundary3857(b Boundary) Boundary {
	f := wgs84.EPSG().Transform(4326, 3857)
	minX, minY, _ := f(b.MinX, b.MinY, 0)
	maxX, maxY, _ := f(b.MaxX, b.MaxY, 0)
	return Boundary{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Transform maps a source pose into the target frame. Z always comes from
// the configured zone z-offset, never from the source pose.
func (t Transformer) Transform(p core.SourcePose) core.Transform {
	switch t.scheme {
	case schemeBoundary:
		x := t.orig.MinX + (p.X-t.conv.MinX)/t.conv.Width()*t.orig.Width()
		y := t.orig.MinY + (p.Y-t.conv.MinY)/t.conv.Height()*t.orig.Height()
		return core.Transform{
			X:   x,
			Y:   -y,
			Z:   t.zOffset,
			Yaw: p.Angle - 90,
		}
	default:
		return core.Transform{
			X:   p.X - t.offsetX,
			Y:   -(p.Y - t.offsetY),
			Z:   t.zOffset,
			Yaw: -p.Angle + 90,
		}
	}
}
