package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/peer"
	"github.com/junsooki/rgbview/internal/signaling"
)

// DefaultAcquireTimeout bounds the wait for the server's acquire reply.
const DefaultAcquireTimeout = 10 * time.Second

// RemoteConfig configures a remote provider.
type RemoteConfig struct {
	// URL of the driver server's control endpoint, e.g. ws://host:8090/control.
	URL string

	// ClientID identifies this viewer to the server.
	ClientID string

	// ICEServers for the WebRTC connection, peer.ICEServers when nil.
	ICEServers []webrtc.ICEServer

	// Timeout for the acquire exchange, DefaultAcquireTimeout when zero.
	Timeout time.Duration
}

// Remote acquires drivers served by another process over the control
// protocol, with frames carried by a WebRTC data channel.
type Remote struct {
	config RemoteConfig
	logger *slog.Logger
}

// NewRemote creates a remote provider.
func NewRemote(config RemoteConfig, logger *slog.Logger) *Remote {
	if config.Timeout <= 0 {
		config.Timeout = DefaultAcquireTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		config: config,
		logger: logger.With("component", "remote-provider"),
	}
}

type acquireReply struct {
	desc *driver.Descriptor
	err  error
}

// Acquire connects to the server, requests capability and, once the server
// describes the driver, starts the WebRTC session that delivers frames.
func (r *Remote) Acquire(ctx context.Context, capability string) (driver.ImageDriver, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var (
		viewer  atomic.Pointer[peer.Viewer]
		remote  atomic.Pointer[driver.Remote]
		replies = make(chan acquireReply, 1)
	)
	reply := func(a acquireReply) {
		select {
		case replies <- a:
		default:
		}
	}

	client := signaling.NewClient(r.config.URL, r.config.ClientID, signaling.Handler{
		OnDriver: func(desc driver.Descriptor) {
			reply(acquireReply{desc: &desc})
		},
		OnAnswer: func(payload json.RawMessage) {
			if v := viewer.Load(); v != nil {
				if err := v.HandleAnswer(payload); err != nil {
					r.logger.Warn("handle answer", "err", err)
				}
			}
		},
		OnICECandidate: func(payload json.RawMessage) {
			if v := viewer.Load(); v != nil {
				if err := v.HandleICECandidate(payload); err != nil {
					r.logger.Debug("handle ICE candidate", "err", err)
				}
			}
		},
		OnError: func(code, msg string) {
			r.logger.Warn("server error", "code", code, "message", msg)
			reply(acquireReply{err: errorForCode(code, msg)})
		},
		OnClose: func(err error) {
			if d := remote.Load(); d != nil {
				r.logger.Warn("remote driver disconnected", "err", err)
				_ = d.Close()
				return
			}
			reply(acquireReply{err: fmt.Errorf("%w: connection closed: %v", ErrConnectivity, err)})
		},
	}, r.logger)

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	if err := client.SendAcquire(capability); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	var desc driver.Descriptor
	select {
	case <-ctx.Done():
		client.Close()
		return nil, fmt.Errorf("%w: acquire %q: %w", ErrConnectivity, capability, ctx.Err())
	case a := <-replies:
		if a.err != nil {
			client.Close()
			return nil, a.err
		}
		desc = *a.desc
	}
	if err := desc.Validate(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	v, err := peer.NewViewer(client, r.config.ICEServers, r.logger)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	viewer.Store(v)

	d, err := driver.NewRemote(desc, v.Transport(), func() error {
		client.Close()
		return v.Close()
	})
	if err != nil {
		client.Close()
		_ = v.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	remote.Store(d)
	if err := v.Connect(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("%w: offer: %v", ErrConnectivity, err)
	}

	r.logger.Info("remote driver acquired",
		"capability", capability,
		"width", desc.Width,
		"height", desc.Height,
		"layout", desc.Layout.String(),
	)
	return d, nil
}

func errorForCode(code, msg string) error {
	var sentinel error
	switch code {
	case signaling.CodeCapabilityNotFound:
		sentinel = ErrCapabilityNotFound
	case signaling.CodeUnknownDriver:
		sentinel = ErrUnknownDriver
	case signaling.CodeInvalidConfiguration:
		sentinel = ErrInvalidConfiguration
	default:
		sentinel = ErrConnectivity
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

var _ Provider = (*Remote)(nil)
