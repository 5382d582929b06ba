// Package wsadapter implements the world.Server transport as JSON over a
// websocket. The peer is a thin sidecar process holding the actual simulator
// client; every request gets exactly one response on the same connection.
package wsadapter

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dualcarla/bridge/internal/world"
	"github.com/dualcarla/bridge/pkg/core"
)

const (
	handshakeTimeout = 10 * time.Second
	callTimeout      = 10 * time.Second
)

// operation names understood by the sidecar
const (
	opGetSettings   = "get_settings"
	opApplySettings = "apply_settings"
	opBlueprints    = "blueprints"
	opTrySpawn      = "try_spawn"
	opSetTransform  = "set_transform"
	opDestroy       = "destroy"
	opTick          = "tick"
)

type transformJSON struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}

type request struct {
	Op        string          `json:"op"`
	Settings  *world.Settings `json:"settings,omitempty"`
	Pattern   string          `json:"pattern,omitempty"`
	Blueprint string          `json:"blueprint,omitempty"`
	Role      string          `json:"role,omitempty"`
	ActorID   uint64          `json:"actorId,omitempty"`
	Transform *transformJSON  `json:"transform,omitempty"`
}

type response struct {
	OK         bool            `json:"ok"`
	Error      string          `json:"error,omitempty"`
	Settings   *world.Settings `json:"settings,omitempty"`
	Blueprints []string        `json:"blueprints,omitempty"`
	Spawned    bool            `json:"spawned,omitempty"`
	ActorID    uint64          `json:"actorId,omitempty"`
}

// Client is a world.Server over one websocket connection. Requests are
// serialized by a mutex; the synchronizer loop is single threaded anyway.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  zerolog.Logger
}

// Dial connects to the sidecar for one target world.
func Dial(host string, port int, log zerolog.Logger) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", host, port), Path: "/bridge"}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing world sidecar %s: %w", u.Host, err)
	}
	log.Info().Str("addr", u.Host).Msg("Connected to world sidecar")
	return &Client{conn: conn, log: log}, nil
}

// call sends one request and decodes the matching response.
func (c *Client) call(req request) (*response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(callTimeout)
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("sending %s: %w", req.Op, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("reading %s response: %w", req.Op, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s failed: %s", req.Op, resp.Error)
	}
	return &resp, nil
}

func toTransformJSON(tf core.Transform) *transformJSON {
	return &transformJSON{X: tf.X, Y: tf.Y, Z: tf.Z, Yaw: tf.Yaw}
}

func (c *Client) GetSettings() (world.Settings, error) {
	resp, err := c.call(request{Op: opGetSettings})
	if err != nil {
		return world.Settings{}, err
	}
	if resp.Settings == nil {
		return world.Settings{}, fmt.Errorf("get_settings response carried no settings")
	}
	return *resp.Settings, nil
}

func (c *Client) ApplySettings(s world.Settings) error {
	_, err := c.call(request{Op: opApplySettings, Settings: &s})
	return err
}

func (c *Client) Blueprints(pattern string) ([]string, error) {
	resp, err := c.call(request{Op: opBlueprints, Pattern: pattern})
	if err != nil {
		return nil, err
	}
	return resp.Blueprints, nil
}

// TrySpawn asks the world to spawn an actor. A response with spawned=false
// means the spot was blocked; that is not a transport error.
func (c *Client) TrySpawn(blueprint, role string, tf core.Transform) (*world.Actor, error) {
	resp, err := c.call(request{
		Op:        opTrySpawn,
		Blueprint: blueprint,
		Role:      role,
		Transform: toTransformJSON(tf),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Spawned {
		return nil, nil
	}
	return &world.Actor{ID: resp.ActorID}, nil
}

func (c *Client) SetTransform(a world.Actor, tf core.Transform) error {
	_, err := c.call(request{Op: opSetTransform, ActorID: a.ID, Transform: toTransformJSON(tf)})
	return err
}

func (c *Client) Destroy(a world.Actor) error {
	_, err := c.call(request{Op: opDestroy, ActorID: a.ID})
	return err
}

func (c *Client) Tick() error {
	_, err := c.call(request{Op: opTick})
	return err
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
