// Package config parses command-line configuration for the rgbview binaries.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/pixel"
)

// Frame sources for the viewer.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// ViewerConfig holds configuration for the viewer binary.
type ViewerConfig struct {
	Source       string
	SignalingURL string
	ViewerID     string
	Capability   string
	Layout       pixel.Layout
	Width        int
	Height       int
	STUN         []string
	Headless     bool
	Ticks        int
	TPS          int
	Snapshot     string
	LogLevel     string
}

// ParseViewerFlags parses viewer flags from args (without the program name).
func ParseViewerFlags(args []string) (*ViewerConfig, error) {
	cfg := &ViewerConfig{Layout: pixel.RGB}
	var stun string

	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	fs.StringVar(&cfg.Source, "source", SourceLocal, "Frame source: local (test pattern) or remote (driverd)")
	fs.StringVar(&cfg.SignalingURL, "signaling", "ws://localhost:8090/control", "driverd control WebSocket URL")
	fs.StringVar(&cfg.ViewerID, "id", "", "Viewer ID (auto-generated if empty)")
	fs.StringVar(&cfg.Capability, "capability", driver.CapabilityRGBImage, "Driver capability to acquire")
	fs.TextVar(&cfg.Layout, "layout", pixel.RGB, "Buffer layout: gray, rgb, bgr, rgba or bgra")
	fs.IntVar(&cfg.Width, "width", driver.DefaultPatternConfig.Width, "Local pattern width")
	fs.IntVar(&cfg.Height, "height", driver.DefaultPatternConfig.Height, "Local pattern height")
	fs.StringVar(&stun, "stun", "", "Comma-separated STUN URLs (default public servers)")
	fs.BoolVar(&cfg.Headless, "headless", false, "Run without a window")
	fs.IntVar(&cfg.Ticks, "ticks", 0, "Headless: stop after this many ticks (0 = until interrupted)")
	fs.IntVar(&cfg.TPS, "tps", 30, "Headless: ticks per second")
	fs.StringVar(&cfg.Snapshot, "snapshot", "", "Headless: write the last frame to this PNG file on exit")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.STUN = splitList(stun)
	if cfg.ViewerID == "" {
		cfg.ViewerID = "viewer-" + uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks flag combinations.
func (c *ViewerConfig) Validate() error {
	var errs []error
	switch c.Source {
	case SourceLocal:
		if _, ok := c.Layout.BufferSize(c.Width, c.Height); !ok {
			errs = append(errs, fmt.Errorf("invalid pattern size %dx%d", c.Width, c.Height))
		}
	case SourceRemote:
		if c.SignalingURL == "" {
			errs = append(errs, errors.New("-signaling is required for -source remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if !c.Layout.Valid() {
		errs = append(errs, fmt.Errorf("unsupported layout %s", c.Layout))
	}
	if c.Capability == "" {
		errs = append(errs, errors.New("-capability must not be empty"))
	}
	if c.TPS <= 0 {
		errs = append(errs, fmt.Errorf("-tps must be positive, got %d", c.TPS))
	}
	if c.Ticks < 0 {
		errs = append(errs, fmt.Errorf("-ticks must not be negative, got %d", c.Ticks))
	}
	return errors.Join(errs...)
}

// DriverConfig holds configuration for the driverd binary.
type DriverConfig struct {
	Listen   string
	Width    int
	Height   int
	Layout   pixel.Layout
	FPS      int
	STUN     []string
	LogLevel string
}

// ParseDriverFlags parses driverd flags from args (without the program name).
func ParseDriverFlags(args []string) (*DriverConfig, error) {
	cfg := &DriverConfig{Layout: pixel.RGB}
	var stun string

	fs := flag.NewFlagSet("driverd", flag.ContinueOnError)
	fs.StringVar(&cfg.Listen, "listen", ":8090", "HTTP listen address")
	fs.IntVar(&cfg.Width, "width", driver.DefaultPatternConfig.Width, "Pattern width")
	fs.IntVar(&cfg.Height, "height", driver.DefaultPatternConfig.Height, "Pattern height")
	fs.TextVar(&cfg.Layout, "layout", pixel.RGB, "Buffer layout: gray, rgb, bgr, rgba or bgra")
	fs.IntVar(&cfg.FPS, "fps", 30, "Frames per second streamed to each viewer (1-60)")
	fs.StringVar(&stun, "stun", "", "Comma-separated STUN URLs (default public servers)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.STUN = splitList(stun)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the driver settings.
func (c *DriverConfig) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("-listen must not be empty"))
	}
	if err := (driver.Descriptor{Width: c.Width, Height: c.Height, Layout: c.Layout}).Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.FPS < 1 || c.FPS > 60 {
		errs = append(errs, fmt.Errorf("-fps must be between 1 and 60, got %d", c.FPS))
	}
	return errors.Join(errs...)
}

// PatternConfig returns the pattern driver settings.
func (c *DriverConfig) PatternConfig() driver.PatternConfig {
	return driver.PatternConfig{Width: c.Width, Height: c.Height, Layout: c.Layout}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
