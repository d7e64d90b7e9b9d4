package signaling

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/junsooki/rgbview/internal/driver"
)

// Conn is the server side of one client connection.
type Conn interface {
	ID() string
	Send(msg Message) error
}

// SessionHandler serves the requests of connected clients. Methods are
// called from the connection's read goroutine.
type SessionHandler interface {
	// Acquire resolves a capability for the client. Errors should be *Error
	// values so the client can tell the failure apart.
	Acquire(c Conn, capability string) (driver.Descriptor, error)

	// HandleOffer answers an SDP offer, sending the answer via c.
	HandleOffer(c Conn, offer json.RawMessage) error

	HandleICECandidate(c Conn, candidate json.RawMessage) error

	// Disconnect releases everything held for the client.
	Disconnect(c Conn)
}

// Server upgrades HTTP requests to control connections.
type Server struct {
	upgrader websocket.Upgrader
	handler  SessionHandler
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*serverConn]struct{}
}

// NewServer creates a control server dispatching to h.
func NewServer(h SessionHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handler: h,
		logger:  logger.With("component", "signaling-server"),
		conns:   make(map[*serverConn]struct{}),
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects all clients.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.ws.Close()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade", "err", err, "remote", r.RemoteAddr)
		return
	}
	c := &serverConn{ws: ws}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		if c.ID() != "" {
			s.handler.Disconnect(c)
		}
		ws.Close()
		s.logger.Info("client disconnected", "id", c.ID())
	}()

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read", "err", err, "id", c.ID())
			}
			return
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *serverConn, msg Message) {
	if msg.Type != TypeRegister && msg.Type != TypePing && c.ID() == "" {
		_ = c.Send(errorMessage(&Error{Code: CodeBadRequest, Message: "not registered"}))
		return
	}

	switch msg.Type {
	case TypeRegister:
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		c.setID(id)
		s.logger.Info("client registered", "id", id)
		_ = c.Send(Message{Type: TypeRegistered, ID: id})

	case TypeAcquire:
		desc, err := s.handler.Acquire(c, msg.Capability)
		if err != nil {
			s.logger.Warn("acquire", "id", c.ID(), "capability", msg.Capability, "err", err)
			_ = c.Send(errorMessage(err))
			return
		}
		_ = c.Send(Message{Type: TypeDriver, Capability: msg.Capability, Driver: &desc})

	case TypeOffer:
		if err := s.handler.HandleOffer(c, msg.Payload); err != nil {
			s.logger.Warn("handle offer", "id", c.ID(), "err", err)
			_ = c.Send(errorMessage(err))
		}

	case TypeICECandidate:
		if err := s.handler.HandleICECandidate(c, msg.Payload); err != nil {
			s.logger.Debug("handle ICE candidate", "id", c.ID(), "err", err)
		}

	case TypePing:
		_ = c.Send(Message{Type: TypePong})

	default:
		_ = c.Send(errorMessage(&Error{Code: CodeBadRequest, Message: "unknown message type " + msg.Type}))
	}
}

type serverConn struct {
	ws *websocket.Conn

	mu sync.Mutex
	id string
}

func (c *serverConn) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *serverConn) setID(id string) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

// Send writes msg; safe for concurrent use.
func (c *serverConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg.Timestamp = time.Now().UnixMilli()
	return c.ws.WriteJSON(msg)
}
