package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/junsooki/rgbview/internal/config"
	"github.com/junsooki/rgbview/internal/decoder"
	"github.com/junsooki/rgbview/internal/display"
	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/headless"
	rlog "github.com/junsooki/rgbview/internal/log"
	"github.com/junsooki/rgbview/internal/peer"
	"github.com/junsooki/rgbview/internal/provider"
	"github.com/junsooki/rgbview/internal/render"
)

func main() {
	cfg, err := config.ParseViewerFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	rlog.Init(cfg.LogLevel)

	log.Printf("rgbview viewer starting")
	log.Printf("  Viewer ID:  %s", cfg.ViewerID)
	log.Printf("  Source:     %s", cfg.Source)
	log.Printf("  Capability: %s", cfg.Capability)
	log.Printf("  Layout:     %s", cfg.Layout)
	if cfg.Source == config.SourceRemote {
		log.Printf("  Signaling:  %s", cfg.SignalingURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// run sets up the render loop and blocks in the window or headless host.
// Ebitengine RunGame must be on the main goroutine (macOS requirement), so
// run is called from main directly.
func run(ctx context.Context, cfg *config.ViewerConfig) error {
	dec, err := decoder.NewRawDecoder(cfg.Layout)
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	p, err := newProvider(cfg)
	if err != nil {
		return err
	}

	if cfg.Headless {
		return runHeadless(ctx, cfg, dec, p)
	}

	disp := display.NewEbiten("rgbview: " + cfg.Capability)
	loop := render.New(dec, disp, render.WithLogger(rlog.L()), render.WithLayout(cfg.Layout))
	defer loop.Close()
	if err := loop.Setup(ctx, p, cfg.Capability); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if err := disp.Run(loop); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	logStats(loop)
	return nil
}

func newProvider(cfg *config.ViewerConfig) (provider.Provider, error) {
	if cfg.Source == config.SourceRemote {
		return provider.NewRemote(provider.RemoteConfig{
			URL:        cfg.SignalingURL,
			ClientID:   cfg.ViewerID,
			ICEServers: peer.STUNServers(cfg.STUN),
		}, rlog.L()), nil
	}

	r := provider.NewRegistry()
	pattern := driver.PatternConfig{Width: cfg.Width, Height: cfg.Height, Layout: cfg.Layout}
	if err := r.Register(driver.CapabilityRGBImage, provider.PatternFactory(pattern)); err != nil {
		return nil, fmt.Errorf("register pattern: %w", err)
	}
	return r, nil
}

func runHeadless(ctx context.Context, cfg *config.ViewerConfig, dec decoder.Decoder, p provider.Provider) error {
	var rec headless.Recorder
	loop := render.New(dec, &rec, render.WithLogger(rlog.L()), render.WithLayout(cfg.Layout))
	defer loop.Close()
	if err := loop.Setup(ctx, p, cfg.Capability); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	host, err := headless.NewHost(loop, cfg.TPS, cfg.Ticks, rlog.L())
	if err != nil {
		return fmt.Errorf("headless: %w", err)
	}
	if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("headless: %v", err)
	}
	logStats(loop)

	if cfg.Snapshot != "" {
		if err := rec.Snapshot(cfg.Snapshot); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		log.Printf("Wrote %s", cfg.Snapshot)
	}
	return nil
}

func logStats(loop *render.Loop) {
	s := loop.Stats()
	log.Printf("ticks=%d rendered=%d failed=%d skipped=%d", s.Ticks, s.Rendered, s.Failed, s.Skipped)
}
