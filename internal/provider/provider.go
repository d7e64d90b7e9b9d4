// Package provider acquires image drivers by capability name.
//
// Providers are constructed and passed explicitly; [Query] turns an
// acquisition into a tagged [Acquisition] so callers can tell an unsupported
// capability apart from a failure without inspecting concrete driver types.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/junsooki/rgbview/internal/driver"
)

// Acquisition errors. All of them end the session's setup; nothing is retried.
var (
	ErrCapabilityNotFound   = errors.New("provider: capability not found")
	ErrUnknownDriver        = errors.New("provider: unknown driver")
	ErrInvalidConfiguration = errors.New("provider: invalid driver configuration")
	ErrConnectivity         = errors.New("provider: driver unreachable")
)

// Provider hands out image drivers for named capabilities.
type Provider interface {
	Acquire(ctx context.Context, capability string) (driver.ImageDriver, error)
}

// Outcome tags the result of a capability query.
type Outcome int

const (
	Found Outcome = iota
	NotSupported
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotSupported:
		return "not supported"
	default:
		return "failed"
	}
}

// Acquisition is the tagged result of a capability query. Driver is set only
// for Found, Err only otherwise.
type Acquisition struct {
	Capability string
	Outcome    Outcome
	Driver     driver.ImageDriver
	Err        error
}

// Query acquires capability from p and classifies the result.
func Query(ctx context.Context, p Provider, capability string) Acquisition {
	a := Acquisition{Capability: capability}
	if p == nil {
		a.Outcome, a.Err = Failed, fmt.Errorf("%w: no provider", ErrUnknownDriver)
		return a
	}

	d, err := p.Acquire(ctx, capability)
	switch {
	case errors.Is(err, ErrCapabilityNotFound):
		a.Outcome, a.Err = NotSupported, err
	case err != nil:
		a.Outcome, a.Err = Failed, err
	case d == nil:
		a.Outcome, a.Err = Failed, fmt.Errorf("%w: provider returned no driver for %q", ErrUnknownDriver, capability)
	default:
		a.Outcome, a.Driver = Found, d
	}
	return a
}
