package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/pixel"
)

type fakeSessions struct {
	mu           sync.Mutex
	disconnected []string
	candidates   int
}

func (f *fakeSessions) Acquire(c Conn, capability string) (driver.Descriptor, error) {
	if capability != driver.CapabilityRGBImage {
		return driver.Descriptor{}, &Error{Code: CodeCapabilityNotFound, Message: capability}
	}
	return driver.Descriptor{Width: 4, Height: 3, Layout: pixel.RGB}, nil
}

func (f *fakeSessions) HandleOffer(c Conn, offer json.RawMessage) error {
	if string(offer) == `"bad"` {
		return errors.New("boom")
	}
	return c.Send(Message{Type: TypeAnswer, Payload: offer})
}

func (f *fakeSessions) HandleICECandidate(c Conn, candidate json.RawMessage) error {
	f.mu.Lock()
	f.candidates++
	f.mu.Unlock()
	return nil
}

func (f *fakeSessions) Disconnect(c Conn) {
	f.mu.Lock()
	f.disconnected = append(f.disconnected, c.ID())
	f.mu.Unlock()
}

func (f *fakeSessions) disconnects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.disconnected...)
}

type received struct {
	registered chan string
	drivers    chan driver.Descriptor
	answers    chan json.RawMessage
	errors     chan [2]string
}

func newReceived() *received {
	return &received{
		registered: make(chan string, 1),
		drivers:    make(chan driver.Descriptor, 1),
		answers:    make(chan json.RawMessage, 1),
		errors:     make(chan [2]string, 4),
	}
}

func (r *received) handler() Handler {
	return Handler{
		OnRegistered: func(id string) { r.registered <- id },
		OnDriver:     func(d driver.Descriptor) { r.drivers <- d },
		OnAnswer:     func(p json.RawMessage) { r.answers <- p },
		OnError:      func(code, msg string) { r.errors <- [2]string{code, msg} },
	}
}

func startServer(t *testing.T) (*fakeSessions, *Server, string) {
	t.Helper()
	sessions := &fakeSessions{}
	srv := NewServer(sessions, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return sessions, srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func connect(t *testing.T, url, id string, r *received) *Client {
	t.Helper()
	c := NewClient(url, id, r.handler(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Close)

	select {
	case got := <-r.registered:
		require.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no registered message")
	}
	return c
}

func TestAcquire(t *testing.T) {
	_, srv, url := startServer(t)
	r := newReceived()
	c := connect(t, url, "viewer-1", r)
	assert.Equal(t, 1, srv.Clients())

	require.NoError(t, c.SendAcquire(driver.CapabilityRGBImage))
	select {
	case d := <-r.drivers:
		assert.Equal(t, driver.Descriptor{Width: 4, Height: 3, Layout: pixel.RGB}, d)
	case <-time.After(2 * time.Second):
		t.Fatal("no driver message")
	}
}

func TestAcquireUnknownCapability(t *testing.T) {
	_, _, url := startServer(t)
	r := newReceived()
	c := connect(t, url, "viewer-2", r)

	require.NoError(t, c.SendAcquire("depth"))
	select {
	case e := <-r.errors:
		assert.Equal(t, CodeCapabilityNotFound, e[0])
		assert.Contains(t, e[1], "depth")
	case <-time.After(2 * time.Second):
		t.Fatal("no error message")
	}
}

func TestOfferAnswer(t *testing.T) {
	_, _, url := startServer(t)
	r := newReceived()
	c := connect(t, url, "viewer-3", r)

	require.NoError(t, c.SendOffer(json.RawMessage(`{"sdp":"x"}`)))
	select {
	case p := <-r.answers:
		assert.JSONEq(t, `{"sdp":"x"}`, string(p))
	case <-time.After(2 * time.Second):
		t.Fatal("no answer")
	}

	require.NoError(t, c.SendOffer(json.RawMessage(`"bad"`)))
	select {
	case e := <-r.errors:
		assert.Equal(t, CodeInternal, e[0])
	case <-time.After(2 * time.Second):
		t.Fatal("no error message")
	}
}

func TestDisconnect(t *testing.T) {
	sessions, srv, url := startServer(t)
	r := newReceived()
	c := connect(t, url, "viewer-4", r)

	c.Close()
	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed")
	}
	assert.Error(t, c.SendAcquire(driver.CapabilityRGBImage))

	require.Eventually(t, func() bool {
		return srv.Clients() == 0 && len(sessions.disconnects()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"viewer-4"}, sessions.disconnects())
}

func TestServerClosesClients(t *testing.T) {
	_, srv, url := startServer(t)
	r := newReceived()
	closed := make(chan error, 1)
	h := r.handler()
	h.OnClose = func(err error) { closed <- err }

	c := NewClient(url, "viewer-5", h, nil)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Close)
	<-r.registered

	srv.Close()
	select {
	case err := <-closed:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client not notified")
	}
}

func TestConnectFailure(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", "viewer-6", Handler{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
}

func TestErrorCode(t *testing.T) {
	err := &Error{Code: CodeUnknownDriver, Message: "x"}
	assert.Equal(t, CodeUnknownDriver, ErrorCode(err))
	assert.Equal(t, CodeUnknownDriver, ErrorCode(errors.Join(errors.New("wrap"), err)))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("plain")))
	assert.Equal(t, "signaling: unknown-driver: x", err.Error())
}
