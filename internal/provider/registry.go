package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/junsooki/rgbview/internal/driver"
)

// Factory opens a driver.
type Factory func(ctx context.Context) (driver.ImageDriver, error)

// Registry is an in-process provider of locally constructed drivers.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register makes f available under capability.
func (r *Registry) Register(capability string, f Factory) error {
	if capability == "" || f == nil {
		return fmt.Errorf("provider: invalid registration for %q", capability)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[capability]; ok {
		return fmt.Errorf("provider: capability %q already registered", capability)
	}
	r.factories[capability] = f
	return nil
}

// Capabilities lists the registered capability names.
func (r *Registry) Capabilities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Acquire(ctx context.Context, capability string) (driver.ImageDriver, error) {
	r.mu.Lock()
	f, ok := r.factories[capability]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCapabilityNotFound, capability)
	}

	d, err := f(ctx)
	switch {
	case errors.Is(err, driver.ErrInvalidConfig):
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	case err != nil:
		return nil, fmt.Errorf("provider: open %q: %w", capability, err)
	case d == nil:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, capability)
	}
	return d, nil
}

// PatternFactory opens a test pattern driver with config.
func PatternFactory(config driver.PatternConfig) Factory {
	return func(context.Context) (driver.ImageDriver, error) {
		p, err := driver.NewPattern(&config)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

var _ Provider = (*Registry)(nil)
