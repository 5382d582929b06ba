package traci

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_SmallCommandFraming(t *testing.T) {
	var w writer
	w.writeCommand(cmdSimStep, encodeDouble(0))
	msg := w.message()

	// 4-byte message length, 1-byte command length, command ID, 8-byte double
	require.Len(t, msg, 4+1+1+8)
	assert.Equal(t, uint32(len(msg)), binary.BigEndian.Uint32(msg))
	assert.Equal(t, byte(10), msg[4])
	assert.Equal(t, byte(cmdSimStep), msg[5])
}

func TestWriter_ExtendedCommandFraming(t *testing.T) {
	payload := []byte(strings.Repeat("x", 300))
	var w writer
	w.writeCommand(cmdGetVehicleVar, payload)
	msg := w.message()

	// zero small length forces the 4-byte extended form
	assert.Equal(t, byte(0), msg[4])
	assert.Equal(t, uint32(2+len(payload)+4), binary.BigEndian.Uint32(msg[5:]))
	assert.Equal(t, byte(cmdGetVehicleVar), msg[9])
}

func TestWriter_MultipleCommands(t *testing.T) {
	var w writer
	w.writeCommand(cmdGetVehicleVar, getVarPayload(varPosition, "veh0"))
	w.writeCommand(cmdGetVehicleVar, getVarPayload(varAngle, "veh0"))
	msg := w.message()

	perCommand := 1 + 1 + 1 + 4 + len("veh0")
	assert.Len(t, msg, 4+2*perCommand)
}

func TestReader_StringRoundTrip(t *testing.T) {
	r := newReader(encodeString("flow_0.12"))
	s, err := r.readString()
	require.NoError(t, err)
	assert.Equal(t, "flow_0.12", s)
	assert.Equal(t, 0, r.len())
}

func TestReader_StringRejectsBadLength(t *testing.T) {
	// claims 100 bytes but carries none
	r := newReader([]byte{0x00, 0x00, 0x00, 0x64})
	_, err := r.readString()
	assert.Error(t, err)
}

func TestReader_StringList(t *testing.T) {
	body := []byte{0x00, 0x00, 0x00, 0x02}
	body = append(body, encodeString("veh0")...)
	body = append(body, encodeString("veh1")...)

	r := newReader(body)
	list, err := r.readStringList()
	require.NoError(t, err)
	assert.Equal(t, []string{"veh0", "veh1"}, list)
}

func TestReader_CommandHeaderExtended(t *testing.T) {
	body := []byte{0x00, 0x00, 0x00, 0x01, 0x2c, respGetVehicleVar}
	r := newReader(body)
	cmd, err := r.readCommandHeader()
	require.NoError(t, err)
	assert.Equal(t, byte(respGetVehicleVar), cmd)
}

func TestReader_StatusFailure(t *testing.T) {
	body := statusBody(cmdSimStep, 0xff, "something broke")
	r := newReader(body)
	err := r.readStatus(cmdSimStep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something broke")
}

func TestReader_StatusCommandMismatch(t *testing.T) {
	body := statusBody(cmdClose, statusOK, "")
	assert.Error(t, newReader(body).readStatus(cmdSimStep))
}

// statusBody frames one status result the way the server sends it.
func statusBody(cmd, result byte, desc string) []byte {
	payload := append([]byte{result}, encodeString(desc)...)
	var w writer
	w.writeCommand(cmd, payload)
	return w.buf.Bytes()
}
