// Package traci implements the subset of the TraCI wire protocol the bridge
// needs: stepping, the live vehicle list and per-vehicle pose retrieval.
//
// TraCI frames are big-endian. A message is a 4-byte total length (counting
// itself) followed by commands; each command is a 1-byte length (0x00 plus a
// 4-byte length for commands over 255 bytes), a command ID and a payload.
package traci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// command IDs
const (
	cmdGetVersion     = 0x00
	cmdSimStep        = 0x02
	cmdClose          = 0x7F
	cmdGetVehicleVar  = 0xa4
	respGetVehicleVar = 0xb4
)

// variable IDs
const (
	varIDList   = 0x00
	varPosition = 0x42
	varAngle    = 0x43
)

// wire type IDs
const (
	typePosition2D = 0x01
	typeDouble     = 0x0b
	typeStringList = 0x0e
)

const statusOK = 0x00

// writer accumulates commands for one outgoing message.
type writer struct {
	buf bytes.Buffer
}

// writeCommand appends one command with the correct length header.
func (w *writer) writeCommand(cmd byte, payload []byte) {
	total := 2 + len(payload)
	if total <= 0xff {
		w.buf.WriteByte(byte(total))
	} else {
		w.buf.WriteByte(0x00)
		var ext [4]byte
		binary.BigEndian.PutUint32(ext[:], uint32(total+4))
		w.buf.Write(ext[:])
	}
	w.buf.WriteByte(cmd)
	w.buf.Write(payload)
}

// message returns the framed message: 4-byte total length plus all commands.
func (w *writer) message() []byte {
	body := w.buf.Bytes()
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(4+len(body)))
	copy(out[4:], body)
	return out
}

func encodeString(s string) []byte {
	out := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(out, uint32(len(s)))
	copy(out[4:], s)
	return out
}

func encodeDouble(v float64) []byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], math.Float64bits(v))
	return out[:]
}

// getVarPayload builds the payload of a variable retrieval command.
func getVarPayload(variable byte, objectID string) []byte {
	out := []byte{variable}
	return append(out, encodeString(objectID)...)
}

// reader walks one received message body.
type reader struct {
	buf *bytes.Reader
}

func newReader(body []byte) *reader {
	return &reader{buf: bytes.NewReader(body)}
}

func (r *reader) len() int { return r.buf.Len() }

func (r *reader) readByte() (byte, error) {
	return r.buf.ReadByte()
}

func (r *reader) readInt() (int32, error) {
	var v int32
	err := binary.Read(r.buf, binary.BigEndian, &v)
	return v, err
}

func (r *reader) readDouble() (float64, error) {
	var v float64
	err := binary.Read(r.buf, binary.BigEndian, &v)
	return v, err
}

func (r *reader) readString() (string, error) {
	n, err := r.readInt()
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > r.buf.Len() {
		return "", fmt.Errorf("invalid string length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) readStringList() ([]string, error) {
	n, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("invalid string list length %d", n)
	}
	out := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// readCommandHeader consumes a command length header (small or extended)
// and returns the command ID.
func (r *reader) readCommandHeader() (byte, error) {
	small, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if small == 0 {
		// extended length, value itself is not needed: every response is
		// parsed field by field
		if _, err := r.readInt(); err != nil {
			return 0, err
		}
	}
	return r.readByte()
}

// readStatus consumes a status result for the given command and fails unless
// the server reported success.
func (r *reader) readStatus(expectCmd byte) error {
	cmd, err := r.readCommandHeader()
	if err != nil {
		return fmt.Errorf("reading status header: %w", err)
	}
	if cmd != expectCmd {
		return fmt.Errorf("status for command 0x%02x, expected 0x%02x", cmd, expectCmd)
	}
	result, err := r.readByte()
	if err != nil {
		return err
	}
	desc, err := r.readString()
	if err != nil {
		return err
	}
	if result != statusOK {
		return fmt.Errorf("command 0x%02x failed: %s", cmd, desc)
	}
	return nil
}

// readVarResponse consumes a variable retrieval response header and returns
// the wire type of the value, positioned right before the value itself.
func (r *reader) readVarResponse(expectCmd, expectVar byte) (wireType byte, err error) {
	cmd, err := r.readCommandHeader()
	if err != nil {
		return 0, fmt.Errorf("reading variable response: %w", err)
	}
	if cmd != expectCmd {
		return 0, fmt.Errorf("response command 0x%02x, expected 0x%02x", cmd, expectCmd)
	}
	variable, err := r.readByte()
	if err != nil {
		return 0, err
	}
	if variable != expectVar {
		return 0, fmt.Errorf("response variable 0x%02x, expected 0x%02x", variable, expectVar)
	}
	if _, err := r.readString(); err != nil { // object ID, unused
		return 0, err
	}
	return r.readByte()
}
