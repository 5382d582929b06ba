package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualcarla/bridge/pkg/core"
)

func TestOffsetScheme(t *testing.T) {
	tr := NewOffset(100, 50, 0.1)

	got := tr.Transform(core.SourcePose{X: 110, Y: 70, Angle: 30})

	assert.InDelta(t, 10, got.X, 1e-9)
	assert.InDelta(t, -20, got.Y, 1e-9)
	assert.InDelta(t, 0.1, got.Z, 1e-9)
	assert.InDelta(t, 60, got.Yaw, 1e-9) // -30 + 90
}

func TestOffsetScheme_Deterministic(t *testing.T) {
	tr := NewOffset(1.5, -2.5, 0.3)
	p := core.SourcePose{X: 42.42, Y: -17.3, Angle: 275}

	first := tr.Transform(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, tr.Transform(p))
	}
}

func TestBoundaryScheme_MapsCorners(t *testing.T) {
	conv := Boundary{MinX: 0, MinY: 0, MaxX: 100, MaxY: 200}
	orig := Boundary{MinX: -50, MinY: -50, MaxX: 50, MaxY: 50}

	tr, err := NewBoundary(conv, orig, 0.1, false)
	require.NoError(t, err)

	// min corner maps to orig min (Y-inverted)
	got := tr.Transform(core.SourcePose{X: 0, Y: 0})
	assert.InDelta(t, orig.MinX, got.X, 1e-9)
	assert.InDelta(t, -orig.MinY, got.Y, 1e-9)

	// max corner maps to orig max (Y-inverted)
	got = tr.Transform(core.SourcePose{X: 100, Y: 200})
	assert.InDelta(t, orig.MaxX, got.X, 1e-9)
	assert.InDelta(t, -orig.MaxY, got.Y, 1e-9)

	// midpoint maps to orig midpoint
	got = tr.Transform(core.SourcePose{X: 50, Y: 100})
	assert.InDelta(t, 0, got.X, 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9)
}

func TestBoundaryScheme_YawConvention(t *testing.T) {
	conv := Boundary{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	orig := Boundary{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

	tr, err := NewBoundary(conv, orig, 0, false)
	require.NoError(t, err)

	got := tr.Transform(core.SourcePose{Angle: 30})
	assert.InDelta(t, -60, got.Yaw, 1e-9) // 30 - 90
}

func TestBoundaryScheme_RejectsDegenerateBoxes(t *testing.T) {
	ok := Boundary{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	flatX := Boundary{MinX: 5, MinY: 0, MaxX: 5, MaxY: 10}
	flatY := Boundary{MinX: 0, MinY: 5, MaxX: 10, MaxY: 5}

	_, err := NewBoundary(flatX, ok, 0, false)
	assert.ErrorIs(t, err, ErrCalibration)

	_, err = NewBoundary(ok, flatY, 0, false)
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestBoundaryScheme_GeoProjection(t *testing.T) {
	conv := Boundary{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}
	// roughly one degree square near the equator
	orig := Boundary{MinX: 13.0, MinY: 52.0, MaxX: 13.1, MaxY: 52.1}

	tr, err := NewBoundary(conv, orig, 0, true)
	require.NoError(t, err)

	// after projection the orig box is in meters, so the remapped X extent
	// must be thousands of meters rather than a tenth of a degree
	left := tr.Transform(core.SourcePose{X: 0, Y: 0})
	right := tr.Transform(core.SourcePose{X: 1000, Y: 0})
	assert.Greater(t, right.X-left.X, 1000.0)
}

func TestZComesFromZoneOffset(t *testing.T) {
	tr := NewOffset(0, 0, 2.5)
	got := tr.Transform(core.SourcePose{X: 1, Y: 1, Angle: 0})
	assert.Equal(t, 2.5, got.Z)
}

const netXML = `<?xml version="1.0" encoding="UTF-8"?>
<net version="1.9">
    <location netOffset="25.00,-10.00" convBoundary="0.00,0.00,200.00,400.00" origBoundary="-100.00,-200.00,100.00,200.00" projParameter="!"/>
    <edge id="e1"/>
</net>`

func TestReadNetBoundaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.net.xml")
	require.NoError(t, os.WriteFile(path, []byte(netXML), 0644))

	conv, orig, err := ReadNetBoundaries(path)
	require.NoError(t, err)

	assert.Equal(t, Boundary{MinX: 0, MinY: 0, MaxX: 200, MaxY: 400}, conv)
	assert.Equal(t, Boundary{MinX: -100, MinY: -200, MaxX: 100, MaxY: 200}, orig)
}

func TestReadNetBoundaries_MissingLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.net.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<net version="1.9"><edge id="e1"/></net>`), 0644))

	_, _, err := ReadNetBoundaries(path)
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestReadNetBoundaries_MalformedBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.net.xml")
	bad := `<net><location convBoundary="1,2,3" origBoundary="0,0,1,1"/></net>`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))

	_, _, err := ReadNetBoundaries(path)
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestReadNetBoundaries_NoFile(t *testing.T) {
	_, _, err := ReadNetBoundaries("/nonexistent/m.net.xml")
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestReadNetOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.net.xml")
	require.NoError(t, os.WriteFile(path, []byte(netXML), 0644))

	x, y, err := ReadNetOffset(path)
	require.NoError(t, err)
	assert.InDelta(t, 25, x, 1e-9)
	assert.InDelta(t, -10, y, 1e-9)
}

func TestReadNetOffset_MissingAttribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.net.xml")
	bad := `<net><location convBoundary="0,0,1,1" origBoundary="0,0,1,1"/></net>`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))

	_, _, err := ReadNetOffset(path)
	assert.ErrorIs(t, err, ErrCalibration)
}

func TestReadNetOffset_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.net.xml")
	bad := `<net><location netOffset="25.00" convBoundary="0,0,1,1" origBoundary="0,0,1,1"/></net>`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))

	_, _, err := ReadNetOffset(path)
	assert.ErrorIs(t, err, ErrCalibration)
}
