// Package llm holds the plumbing shared by the model adapters: lifecycle
// state, throttling, HTTP transport with error classification and prompt
// construction. Provider packages embed Base and supply the wire format.
package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// DefaultTimeout bounds a single HTTP exchange when no deadline is set.
const DefaultTimeout = 120 * time.Second

// Base carries the descriptor, lifecycle and throttle of one adapter.
type Base struct {
	desc    domain.ModelDescriptor
	limiter *rate.Limiter

	mu       sync.Mutex
	state    domain.AdapterState
	inflight int
}

// NewBase creates an uninitialised base. A positive rps throttles calls;
// bursts up to one second's worth of requests are allowed.
func NewBase(desc domain.ModelDescriptor, rps float64) *Base {
	b := &Base{desc: desc, state: domain.AdapterUninitialized}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return b
}

// Descriptor returns the model description.
func (b *Base) Descriptor() domain.ModelDescriptor {
	return b.desc
}

// State returns the current lifecycle state.
func (b *Base) State() domain.AdapterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsAvailable reports whether the adapter can take requests.
func (b *Base) IsAvailable() bool {
	return b.State().IsSelectable()
}

// MarkReady records a successful initialisation.
func (b *Base) MarkReady() {
	b.setIdleState(domain.AdapterReady)
}

// MarkUnavailable records a failed initialisation.
func (b *Base) MarkUnavailable() {
	b.setIdleState(domain.AdapterUnavailable)
}

func (b *Base) setIdleState(s domain.AdapterState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == domain.AdapterDisposed {
		return
	}
	if b.inflight > 0 {
		// Busy wins while calls are running; end() restores the idle state.
		if s == domain.AdapterUnavailable {
			b.state = s
		}
		return
	}
	b.state = s
}

// Dispose moves the adapter to its terminal state.
// It returns false if it was already disposed.
func (b *Base) Dispose() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == domain.AdapterDisposed {
		return false
	}
	b.state = domain.AdapterDisposed
	return true
}

// Initialise runs probe and records the outcome. A nil probe only flips the
// state to ready. Probe errors are classified and returned.
func (b *Base) Initialise(ctx context.Context, probe func(context.Context) error) error {
	if b.State() == domain.AdapterDisposed {
		return b.disposedError("initialize")
	}
	if probe != nil {
		if err := probe(ctx); err != nil {
			b.MarkUnavailable()
			return Classify(b.desc.ID, "initialize", err)
		}
	}
	b.MarkReady()
	return nil
}

// Call runs fn as one model call: it waits for the throttle, marks the
// adapter busy, classifies failures and updates health from the outcome.
func (b *Base) Call(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	if err := b.begin(op); err != nil {
		return "", err
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			err = Classify(b.desc.ID, op, err)
			b.end(err)
			return "", err
		}
	}

	text, err := fn(ctx)
	if err != nil {
		err = Classify(b.desc.ID, op, err)
	}
	b.end(err)
	return text, err
}

func (b *Base) begin(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == domain.AdapterDisposed {
		return b.disposedError(op)
	}
	b.inflight++
	b.state = domain.AdapterBusy
	return nil
}

// end settles the state after a call. Unreachable backends become
// unavailable; any answer from the backend proves it is up. A cancelled
// caller says nothing about the backend.
func (b *Base) end(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
	if b.state == domain.AdapterDisposed {
		return
	}
	switch {
	case errors.Is(err, context.Canceled):
		if b.inflight == 0 {
			b.state = domain.AdapterReady
		}
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrMissingCredential):
		b.state = domain.AdapterUnavailable
	case b.inflight > 0:
		b.state = domain.AdapterBusy
	default:
		b.state = domain.AdapterReady
	}
}

func (b *Base) disposedError(op string) error {
	return &domain.BackendError{
		ModelID:   b.desc.ID,
		Operation: op,
		Kind:      domain.ErrBackendUnavailable,
		Err:       domain.ErrAdapterDisposed,
	}
}

// RequireCredential fails with ErrMissingCredential when the descriptor has no key.
func (b *Base) RequireCredential(_ context.Context) error {
	if b.desc.Credential == "" {
		return &domain.BackendError{
			ModelID:   b.desc.ID,
			Operation: "initialize",
			Kind:      domain.ErrMissingCredential,
		}
	}
	return nil
}
