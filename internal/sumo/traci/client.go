package traci

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/pkg/core"
)

const (
	dialTimeout = 10 * time.Second
	callTimeout = 5 * time.Second
)

// Client talks TraCI over a single TCP connection. The bridge drives the
// simulation in lockstep, so calls are strictly sequential and the client is
// not safe for concurrent use.
type Client struct {
	conn net.Conn
	log  zerolog.Logger
}

// Dial connects to a running TraCI server and performs the version handshake.
func Dial(host string, port int, log zerolog.Logger) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dialing traci server %s: %w", addr, err)
	}
	c := &Client{conn: conn, log: log}

	apiVersion, serverVersion, err := c.getVersion()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("traci handshake: %w", err)
	}
	log.Info().
		Str("addr", addr).
		Int32("apiVersion", apiVersion).
		Str("server", serverVersion).
		Msg("Connected to traffic simulation")
	return c, nil
}

// roundTrip sends one framed message and returns a reader over the response
// body, with the 4-byte message length already consumed.
func (c *Client) roundTrip(w *writer) (*reader, error) {
	if err := c.conn.SetDeadline(time.Now().Add(callTimeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(w.message()); err != nil {
		return nil, fmt.Errorf("writing traci message: %w", err)
	}

	var lenBuf [4]byte
	if err := readFull(c.conn, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("reading traci response length: %w", err)
	}
	total := int(uint32(lenBuf[0])<<24 | uint32(lenBuf[1])<<16 | uint32(lenBuf[2])<<8 | uint32(lenBuf[3]))
	if total < 4 {
		return nil, fmt.Errorf("invalid traci response length %d", total)
	}
	body := make([]byte, total-4)
	if err := readFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("reading traci response body: %w", err)
	}
	return newReader(body), nil
}

func readFull(conn net.Conn, buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := conn.Read(buf[n:])
		if err != nil {
			return err
		}
		n += m
	}
	return nil
}

func (c *Client) getVersion() (apiVersion int32, serverVersion string, err error) {
	var w writer
	w.writeCommand(cmdGetVersion, nil)
	r, err := c.roundTrip(&w)
	if err != nil {
		return 0, "", err
	}
	if err := r.readStatus(cmdGetVersion); err != nil {
		return 0, "", err
	}
	if _, err := r.readCommandHeader(); err != nil {
		return 0, "", err
	}
	if apiVersion, err = r.readInt(); err != nil {
		return 0, "", err
	}
	if serverVersion, err = r.readString(); err != nil {
		return 0, "", err
	}
	return apiVersion, serverVersion, nil
}

// Step advances the simulation by one configured step length. Sending a
// target time of zero asks the server for exactly one step.
func (c *Client) Step() error {
	var w writer
	w.writeCommand(cmdSimStep, encodeDouble(0))
	r, err := c.roundTrip(&w)
	if err != nil {
		return err
	}
	if err := r.readStatus(cmdSimStep); err != nil {
		return err
	}
	// the step response carries subscription results; none are registered,
	// so the trailing count must be zero
	if r.len() >= 4 {
		if _, err := r.readInt(); err != nil {
			return err
		}
	}
	return nil
}

// VehicleIDs lists the vehicles currently live in the simulation.
func (c *Client) VehicleIDs() ([]core.VehicleID, error) {
	var w writer
	w.writeCommand(cmdGetVehicleVar, getVarPayload(varIDList, ""))
	r, err := c.roundTrip(&w)
	if err != nil {
		return nil, err
	}
	if err := r.readStatus(cmdGetVehicleVar); err != nil {
		return nil, err
	}
	wt, err := r.readVarResponse(respGetVehicleVar, varIDList)
	if err != nil {
		return nil, err
	}
	if wt != typeStringList {
		return nil, fmt.Errorf("vehicle ID list has wire type 0x%02x", wt)
	}
	raw, err := r.readStringList()
	if err != nil {
		return nil, err
	}
	ids := make([]core.VehicleID, len(raw))
	for i, s := range raw {
		ids[i] = core.VehicleID(s)
	}
	return ids, nil
}

// Pose returns the current source-frame pose of one vehicle.
func (c *Client) Pose(id core.VehicleID) (core.SourcePose, error) {
	var pose core.SourcePose

	var w writer
	w.writeCommand(cmdGetVehicleVar, getVarPayload(varPosition, string(id)))
	w.writeCommand(cmdGetVehicleVar, getVarPayload(varAngle, string(id)))
	r, err := c.roundTrip(&w)
	if err != nil {
		return pose, err
	}

	if err := r.readStatus(cmdGetVehicleVar); err != nil {
		return pose, fmt.Errorf("vehicle %s position: %w", id, err)
	}
	wt, err := r.readVarResponse(respGetVehicleVar, varPosition)
	if err != nil {
		return pose, err
	}
	if wt != typePosition2D {
		return pose, fmt.Errorf("vehicle position has wire type 0x%02x", wt)
	}
	if pose.X, err = r.readDouble(); err != nil {
		return pose, err
	}
	if pose.Y, err = r.readDouble(); err != nil {
		return pose, err
	}

	if err := r.readStatus(cmdGetVehicleVar); err != nil {
		return pose, fmt.Errorf("vehicle %s angle: %w", id, err)
	}
	wt, err = r.readVarResponse(respGetVehicleVar, varAngle)
	if err != nil {
		return pose, err
	}
	if wt != typeDouble {
		return pose, fmt.Errorf("vehicle angle has wire type 0x%02x", wt)
	}
	if pose.Angle, err = r.readDouble(); err != nil {
		return pose, err
	}
	return pose, nil
}

// Close sends the close command and drops the connection. The server ends
// the simulation when its last client leaves.
func (c *Client) Close() error {
	var w writer
	w.writeCommand(cmdClose, nil)
	// status read is best effort, the server may hang up first
	_, _ = c.roundTrip(&w)
	return c.conn.Close()
}
