package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// NewPeerConnection creates a configured PeerConnection. A nil servers list
// uses ICEServers.
func NewPeerConnection(servers []webrtc.ICEServer, logger *slog.Logger) (*webrtc.PeerConnection, error) {
	if servers == nil {
		servers = ICEServers
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := webrtc.Configuration{
		ICEServers: servers,
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", "state", state.String())
	})
	return pc, nil
}

// STUNServers builds an ICE server list from STUN/TURN URLs.
func STUNServers(urls []string) []webrtc.ICEServer {
	if len(urls) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: urls}}
}

// candidates queues remote ICE candidates that arrive before the remote
// description is set.
type candidates struct {
	mu      sync.Mutex
	ready   bool
	pending []webrtc.ICECandidateInit
}

func (q *candidates) add(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	q.mu.Lock()
	if !q.ready {
		q.pending = append(q.pending, candidate)
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()
	return pc.AddICECandidate(candidate)
}

// flush applies queued candidates once the remote description is set.
func (q *candidates) flush(pc *webrtc.PeerConnection) error {
	q.mu.Lock()
	q.ready = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, c := range pending {
		if err := pc.AddICECandidate(c); err != nil {
			return err
		}
	}
	return nil
}

func (q *candidates) queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
