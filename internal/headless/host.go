// Package headless ticks a render loop without a window, for servers, CI
// and smoke tests.
package headless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Loop is the part of render.Loop the host drives.
type Loop interface {
	Tick()
	Dimensions() (w, h int, ok bool)
}

// ErrInvalidRate is returned for a non-positive tick rate.
var ErrInvalidRate = errors.New("headless: ticks per second must be positive")

// Host ticks a loop at a fixed rate from a single goroutine.
type Host struct {
	loop   Loop
	tps    int
	limit  int
	logger *slog.Logger

	ticks int
}

// NewHost creates a host ticking loop tps times per second. A positive limit
// stops Run after that many ticks.
func NewHost(loop Loop, tps, limit int, logger *slog.Logger) (*Host, error) {
	if tps <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRate, tps)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		loop:   loop,
		tps:    tps,
		limit:  limit,
		logger: logger.With("component", "headless"),
	}, nil
}

// Run ticks until ctx ends or the tick limit is reached. It returns nil when
// the limit was reached and ctx.Err() otherwise.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(h.tps))
	defer ticker.Stop()

	w, hh, ok := h.loop.Dimensions()
	h.logger.Info("headless host started", "tps", h.tps, "limit", h.limit,
		"width", w, "height", hh, "ready", ok)

	for h.limit <= 0 || h.ticks < h.limit {
		select {
		case <-ctx.Done():
			h.logger.Info("headless host stopped", "ticks", h.ticks, "err", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			h.loop.Tick()
			h.ticks++
		}
	}
	h.logger.Info("tick limit reached", "ticks", h.ticks)
	return nil
}

// Ticks returns how many ticks Run has issued.
func (h *Host) Ticks() int {
	return h.ticks
}
