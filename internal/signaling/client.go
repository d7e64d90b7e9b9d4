package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/rgbview/internal/driver"
)

// Handler callbacks for incoming control messages. Callbacks run on the
// client's read goroutine.
type Handler struct {
	OnRegistered   func(id string)
	OnDriver       func(desc driver.Descriptor)
	OnAnswer       func(payload json.RawMessage)
	OnICECandidate func(payload json.RawMessage)
	OnError        func(code, msg string)
	OnClose        func(err error)
}

// Client is a WebSocket control client.
type Client struct {
	url      string
	clientID string
	handler  Handler
	logger   *slog.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewClient creates a control client.
func NewClient(url, clientID string, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      url,
		clientID: clientID,
		handler:  handler,
		logger:   logger.With("component", "signaling", "id", clientID),
		done:     make(chan struct{}),
	}
}

// Connect dials the server, registers and starts reading messages.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	err = c.send(Message{
		Type: TypeRegister,
		ID:   c.clientID,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("signaling register: %w", err)
	}

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Done is closed once the connection is shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}

// SendAcquire asks the server for a driver providing capability.
func (c *Client) SendAcquire(capability string) error {
	return c.send(Message{Type: TypeAcquire, Capability: capability})
}

// SendOffer sends an SDP offer.
func (c *Client) SendOffer(payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Payload: payload})
}

// SendICECandidate sends an ICE candidate.
func (c *Client) SendICECandidate(payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Payload: payload})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("not connected")
	}
	msg.Timestamp = time.Now().UnixMilli()
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	var readErr error
	defer func() {
		c.Close()
		if c.handler.OnClose != nil {
			c.handler.OnClose(readErr)
		}
	}()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("signaling read error", "err", err)
				readErr = err
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case TypeRegistered:
		if c.handler.OnRegistered != nil {
			c.handler.OnRegistered(msg.ID)
		}
	case TypeDriver:
		if msg.Driver == nil {
			c.logger.Warn("driver message without descriptor")
			return
		}
		if c.handler.OnDriver != nil {
			c.handler.OnDriver(*msg.Driver)
		}
	case TypeAnswer:
		if c.handler.OnAnswer != nil {
			c.handler.OnAnswer(msg.Payload)
		}
	case TypeICECandidate:
		if c.handler.OnICECandidate != nil {
			c.handler.OnICECandidate(msg.Payload)
		}
	case TypeError:
		if c.handler.OnError != nil {
			c.handler.OnError(msg.Code, msg.Msg)
		}
	case TypePong:
		// heartbeat response, nothing to do
	default:
		c.logger.Debug("ignoring message", "type", msg.Type)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.send(Message{Type: TypePing})
		}
	}
}
