package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junsooki/rgbview/internal/config"
	"github.com/junsooki/rgbview/internal/driver"
	rlog "github.com/junsooki/rgbview/internal/log"
	"github.com/junsooki/rgbview/internal/peer"
	"github.com/junsooki/rgbview/internal/signaling"
)

func main() {
	cfg, err := config.ParseDriverFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	rlog.Init(cfg.LogLevel)

	log.Printf("rgbview driverd starting")
	log.Printf("  Listen:  %s", cfg.Listen)
	log.Printf("  Pattern: %dx%d %s", cfg.Width, cfg.Height, cfg.Layout)
	log.Printf("  FPS:     %d", cfg.FPS)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// newPublisher publishes the pattern driver; every viewer streams its own
// pattern instance.
func newPublisher(cfg *config.DriverConfig) (*peer.Publisher, error) {
	pattern := cfg.PatternConfig()
	if _, err := driver.NewPattern(&pattern); err != nil {
		return nil, fmt.Errorf("pattern driver: %w", err)
	}

	pub := peer.NewPublisher(cfg.FPS, peer.STUNServers(cfg.STUN), rlog.L())
	err := pub.Publish(driver.CapabilityRGBImage, func() (driver.ImageDriver, error) {
		return driver.NewPattern(&pattern)
	})
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return pub, nil
}

func run(ctx context.Context, cfg *config.DriverConfig) error {
	pub, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer pub.Close()

	control := signaling.NewServer(pub, rlog.L())
	mux := http.NewServeMux()
	mux.Handle("/control", control)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		control.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("driverd ready on %s/control, capability %q", cfg.Listen, driver.CapabilityRGBImage)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
