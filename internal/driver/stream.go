package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/junsooki/rgbview/internal/transport"
)

// Stream pulls frames from d at fps and sends them until ctx is done.
// Send failures drop the frame; driver failures are logged and skipped.
func Stream(ctx context.Context, d ImageDriver, fps int, out transport.FrameSender, logger *slog.Logger) error {
	if fps <= 0 || fps > 60 {
		return fmt.Errorf("%w: fps must be 1-60, got %d", ErrInvalidConfig, fps)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var sent, dropped int
	for {
		select {
		case <-ctx.Done():
			logger.Debug("frame stream stopped", "sent", sent, "dropped", dropped)
			return ctx.Err()
		case <-ticker.C:
		}

		data, err := d.RawVisualData()
		if err != nil {
			logger.Warn("read frame", "err", err)
			continue
		}
		if err := out.SendFrame(data); err != nil {
			dropped++
			if !errors.Is(err, transport.ErrCongested) {
				logger.Debug("send frame", "err", err)
			}
			continue
		}
		sent++
	}
}
