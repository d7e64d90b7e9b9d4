package peer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/signaling"
	"github.com/junsooki/rgbview/internal/transport"
)

// Session is the driver side of one viewer connection. Once the viewer's
// frames channel opens, the session streams the driver's frames over it.
type Session struct {
	pc         *webrtc.PeerConnection
	conn       signaling.Conn
	transport  *transport.DataChannelTransport
	candidates candidates
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewSession creates a session streaming src at fps to the viewer behind conn.
func NewSession(conn signaling.Conn, src driver.ImageDriver, fps int, servers []webrtc.ICEServer, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "peer", "side", "driver", "viewer", conn.ID())
	pc, err := NewPeerConnection(servers, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		pc:        pc,
		conn:      conn,
		transport: transport.NewDataChannelTransport(nil),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != transport.FramesLabel {
			logger.Warn("ignoring data channel", "label", dc.Label())
			return
		}
		s.transport.SetFramesChannel(dc)
		dc.OnOpen(func() {
			logger.Info("frames data channel open, streaming")
			go func() {
				if err := driver.Stream(s.ctx, src, fps, s.transport, logger); err != nil && s.ctx.Err() == nil {
					logger.Error("frame stream", "err", err)
				}
			}()
		})
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", "err", err)
			return
		}
		_ = conn.Send(signaling.Message{Type: signaling.TypeICECandidate, Payload: data})
	})

	return s, nil
}

// HandleOffer answers the viewer's SDP offer.
func (s *Session) HandleOffer(payload json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return err
	}
	if err := s.candidates.flush(s.pc); err != nil {
		return err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return s.conn.Send(signaling.Message{Type: signaling.TypeAnswer, Payload: answerJSON})
}

// HandleICECandidate adds a remote ICE candidate.
func (s *Session) HandleICECandidate(payload json.RawMessage) error {
	return s.candidates.add(s.pc, payload)
}

// Close stops streaming and shuts down the peer connection.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		_ = s.transport.Close()
		err = s.pc.Close()
	})
	return err
}
