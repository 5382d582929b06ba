package transform

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// netLocation mirrors the <location> element of a SUMO net.xml file.
type netLocation struct {
	ConvBoundary string `xml:"convBoundary,attr"`
	OrigBoundary string `xml:"origBoundary,attr"`
	NetOffset    string `xml:"netOffset,attr"`
}

type netFile struct {
	XMLName  xml.Name     `xml:"net"`
	Location *netLocation `xml:"location"`
}

// ReadNetBoundaries extracts the conv and orig bounding boxes from a SUMO
// net.xml file. Missing or malformed location metadata is a calibration
// error, since the boundary scheme cannot work without it.
func ReadNetBoundaries(path string) (conv, orig Boundary, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Boundary{}, Boundary{}, fmt.Errorf("%w: reading net file: %v", ErrCalibration, err)
	}

	var net netFile
	if err := xml.Unmarshal(data, &net); err != nil {
		return Boundary{}, Boundary{}, fmt.Errorf("%w: parsing net file: %v", ErrCalibration, err)
	}
	if net.Location == nil {
		return Boundary{}, Boundary{}, fmt.Errorf("%w: no <location> element in %s", ErrCalibration, path)
	}

	conv, err = parseBoundary(net.Location.ConvBoundary)
	if err != nil {
		return Boundary{}, Boundary{}, fmt.Errorf("%w: convBoundary: %v", ErrCalibration, err)
	}
	orig, err = parseBoundary(net.Location.OrigBoundary)
	if err != nil {
		return Boundary{}, Boundary{}, fmt.Errorf("%w: origBoundary: %v", ErrCalibration, err)
	}
	return conv, orig, nil
}

// ReadNetOffset extracts the network origin offset from a SUMO net.xml file.
// TraCI has no retrieval variable for it, so the offset calibration scheme
// reads it from the file the network was built from.
func ReadNetOffset(path string) (x, y float64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reading net file: %v", ErrCalibration, err)
	}

	var net netFile
	if err := xml.Unmarshal(data, &net); err != nil {
		return 0, 0, fmt.Errorf("%w: parsing net file: %v", ErrCalibration, err)
	}
	if net.Location == nil || net.Location.NetOffset == "" {
		return 0, 0, fmt.Errorf("%w: no netOffset in %s", ErrCalibration, path)
	}

	parts := strings.Split(net.Location.NetOffset, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: netOffset: expected 2 comma-separated values, got %q", ErrCalibration, net.Location.NetOffset)
	}
	if x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, fmt.Errorf("%w: netOffset: bad value %q", ErrCalibration, parts[0])
	}
	if y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, fmt.Errorf("%w: netOffset: bad value %q", ErrCalibration, parts[1])
	}
	return x, y, nil
}

// parseBoundary parses a "minX,minY,maxX,maxY" attribute value.
func parseBoundary(s string) (Boundary, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Boundary{}, fmt.Errorf("expected 4 comma-separated values, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Boundary{}, fmt.Errorf("bad value %q", p)
		}
		vals[i] = v
	}
	return Boundary{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}
