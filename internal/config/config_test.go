package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/pixel"
)

func TestViewerDefaults(t *testing.T) {
	cfg, err := ParseViewerFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, cfg.Source)
	assert.Equal(t, driver.CapabilityRGBImage, cfg.Capability)
	assert.Equal(t, pixel.RGB, cfg.Layout)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
	assert.Equal(t, 30, cfg.TPS)
	assert.Nil(t, cfg.STUN)
	assert.True(t, strings.HasPrefix(cfg.ViewerID, "viewer-"))
}

func TestViewerFlags(t *testing.T) {
	cfg, err := ParseViewerFlags([]string{
		"-source", "remote",
		"-signaling", "ws://10.0.0.2:8090/control",
		"-id", "bench",
		"-layout", "bgra",
		"-stun", "stun:a:3478, stun:b:3478",
		"-headless", "-ticks", "10", "-snapshot", "out.png",
	})
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, cfg.Source)
	assert.Equal(t, "bench", cfg.ViewerID)
	assert.Equal(t, pixel.BGRA, cfg.Layout)
	assert.Equal(t, []string{"stun:a:3478", "stun:b:3478"}, cfg.STUN)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 10, cfg.Ticks)
	assert.Equal(t, "out.png", cfg.Snapshot)
}

func TestViewerInvalid(t *testing.T) {
	tests := map[string][]string{
		"source":     {"-source", "usb"},
		"layout":     {"-layout", "yuv"},
		"size":       {"-width", "0"},
		"tps":        {"-tps", "0"},
		"ticks":      {"-ticks", "-1"},
		"capability": {"-capability", ""},
		"flag":       {"-bogus"},
	}
	for name, args := range tests {
		_, err := ParseViewerFlags(args)
		assert.Error(t, err, name)
	}
}

func TestDriverFlags(t *testing.T) {
	cfg, err := ParseDriverFlags([]string{"-listen", ":9000", "-width", "32", "-height", "8", "-layout", "gray", "-fps", "60"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, driver.PatternConfig{Width: 32, Height: 8, Layout: pixel.Gray}, cfg.PatternConfig())
	assert.Equal(t, 60, cfg.FPS)
}

func TestDriverInvalid(t *testing.T) {
	for _, args := range [][]string{
		{"-fps", "0"},
		{"-fps", "61"},
		{"-height", "-4"},
		{"-listen", ""},
	} {
		_, err := ParseDriverFlags(args)
		assert.Error(t, err, args)
	}
}
