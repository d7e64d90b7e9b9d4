package peer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/signaling"
)

// Source creates a driver instance. Each viewer that acquires a capability
// gets its own instance, so stateful drivers such as driver.Pattern are
// never shared between streams.
type Source func() (driver.ImageDriver, error)

// Publisher serves local drivers to remote viewers. It implements
// signaling.SessionHandler.
type Publisher struct {
	fps     int
	servers []webrtc.ICEServer
	logger  *slog.Logger

	mu       sync.Mutex
	sources  map[string]Source
	acquired map[string]driver.ImageDriver
	sessions map[string]*Session
}

// NewPublisher creates a publisher streaming at fps.
func NewPublisher(fps int, servers []webrtc.ICEServer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		fps:      fps,
		servers:  servers,
		logger:   logger.With("component", "publisher"),
		sources:  make(map[string]Source),
		acquired: make(map[string]driver.ImageDriver),
		sessions: make(map[string]*Session),
	}
}

// Publish offers drivers created by src under capability.
func (p *Publisher) Publish(capability string, src Source) error {
	if capability == "" || src == nil {
		return errors.New("peer: publish needs a capability and a source")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sources[capability]; ok {
		return fmt.Errorf("peer: capability %q already published", capability)
	}
	p.sources[capability] = src
	return nil
}

// Acquire creates a driver instance for the viewer behind c, replacing any
// instance it acquired before.
func (p *Publisher) Acquire(c signaling.Conn, capability string) (driver.Descriptor, error) {
	p.mu.Lock()
	src, ok := p.sources[capability]
	p.mu.Unlock()
	if !ok {
		return driver.Descriptor{}, &signaling.Error{
			Code:    signaling.CodeCapabilityNotFound,
			Message: fmt.Sprintf("capability %q not published", capability),
		}
	}

	d, err := src()
	switch {
	case errors.Is(err, driver.ErrInvalidConfig):
		return driver.Descriptor{}, &signaling.Error{Code: signaling.CodeInvalidConfiguration, Message: err.Error()}
	case err != nil:
		return driver.Descriptor{}, &signaling.Error{Code: signaling.CodeUnknownDriver, Message: err.Error()}
	case d == nil:
		return driver.Descriptor{}, &signaling.Error{Code: signaling.CodeUnknownDriver, Message: "source returned no driver"}
	}
	desc := driver.Describe(d)
	if err := desc.Validate(); err != nil {
		release(d)
		return driver.Descriptor{}, &signaling.Error{Code: signaling.CodeInvalidConfiguration, Message: err.Error()}
	}

	p.mu.Lock()
	old := p.acquired[c.ID()]
	p.acquired[c.ID()] = d
	p.mu.Unlock()
	release(old)

	p.logger.Info("driver acquired", "viewer", c.ID(), "capability", capability)
	return desc, nil
}

func (p *Publisher) HandleOffer(c signaling.Conn, offer json.RawMessage) error {
	p.mu.Lock()
	d, ok := p.acquired[c.ID()]
	old := p.sessions[c.ID()]
	delete(p.sessions, c.ID())
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if !ok {
		return &signaling.Error{Code: signaling.CodeBadRequest, Message: "offer before acquire"}
	}

	s, err := NewSession(c, d, p.fps, p.servers, p.logger)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.sessions[c.ID()] = s
	p.mu.Unlock()

	if err := s.HandleOffer(offer); err != nil {
		p.closeSession(c.ID())
		return err
	}
	return nil
}

func (p *Publisher) HandleICECandidate(c signaling.Conn, candidate json.RawMessage) error {
	p.mu.Lock()
	s := p.sessions[c.ID()]
	p.mu.Unlock()
	if s == nil {
		return &signaling.Error{Code: signaling.CodeBadRequest, Message: "no session"}
	}
	return s.HandleICECandidate(candidate)
}

func (p *Publisher) Disconnect(c signaling.Conn) {
	p.mu.Lock()
	d := p.acquired[c.ID()]
	delete(p.acquired, c.ID())
	p.mu.Unlock()
	p.closeSession(c.ID())
	release(d)
}

// Sessions returns the number of active sessions.
func (p *Publisher) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Close ends all sessions and releases their drivers.
func (p *Publisher) Close() {
	p.mu.Lock()
	sessions := p.sessions
	acquired := p.acquired
	p.sessions = make(map[string]*Session)
	p.acquired = make(map[string]driver.ImageDriver)
	p.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
	for _, d := range acquired {
		release(d)
	}
}

// Acquired returns the number of driver instances held for viewers.
func (p *Publisher) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.acquired)
}

func (p *Publisher) closeSession(id string) {
	p.mu.Lock()
	s := p.sessions[id]
	delete(p.sessions, id)
	p.mu.Unlock()
	if s != nil {
		_ = s.Close()
	}
}

func release(d driver.ImageDriver) {
	if c, ok := d.(io.Closer); ok {
		_ = c.Close()
	}
}

var _ signaling.SessionHandler = (*Publisher)(nil)
