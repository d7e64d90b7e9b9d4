package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/rgbview/internal/transport"
)

// Signaler sends the viewer's half of the WebRTC negotiation.
type Signaler interface {
	SendOffer(payload json.RawMessage) error
	SendICECandidate(payload json.RawMessage) error
}

// Viewer manages the viewer side of the WebRTC connection. It creates the
// frames data channel and makes the offer.
type Viewer struct {
	pc         *webrtc.PeerConnection
	sig        Signaler
	transport  *transport.DataChannelTransport
	candidates candidates
	logger     *slog.Logger
}

// NewViewer creates a Viewer peer.
func NewViewer(sig Signaler, servers []webrtc.ICEServer, logger *slog.Logger) (*Viewer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "peer", "side", "viewer")
	pc, err := NewPeerConnection(servers, logger)
	if err != nil {
		return nil, err
	}

	ordered := true
	framesDC, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}
	framesDC.OnOpen(func() {
		logger.Info("frames data channel open")
	})

	v := &Viewer{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(framesDC),
		logger:    logger,
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", "err", err)
			return
		}
		_ = sig.SendICECandidate(data)
	})

	return v, nil
}

// Transport returns the frames transport.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect creates and sends the SDP offer.
func (v *Viewer) Connect() error {
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(offerJSON)
}

// HandleAnswer applies the remote SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	if err := v.pc.SetRemoteDescription(answer); err != nil {
		return err
	}
	return v.candidates.flush(v.pc)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return v.candidates.add(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() error {
	_ = v.transport.Close()
	return v.pc.Close()
}
