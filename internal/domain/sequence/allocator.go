package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts is the number of allocation attempts before giving up
const DefaultMaxAttempts = 3

// Outcome classifies a single allocation attempt
type Outcome int

const (
	// OutcomeSuccess means the identifier was reserved and committed
	OutcomeSuccess Outcome = iota
	// OutcomeRetryableConflict means a concurrent writer won the race for the proposed identifier
	OutcomeRetryableConflict
	// OutcomeFatal means any other failure; it is never retried
	OutcomeFatal
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableConflict:
		return "conflict"
	default:
		return "fatal"
	}
}

// AttemptResult is the tagged result of one transactional allocation attempt
type AttemptResult struct {
	Outcome    Outcome
	Identifier string
	Err        error
}

// PersistFunc runs inside the allocating transaction with the freshly reserved identifier,
// typically to insert the document that carries it.
type PersistFunc func(ctx context.Context, store Store, identifier string) error

// Observer receives allocation telemetry
type Observer interface {
	AttemptFinished(ctx context.Context, scope Scope, attempt int, outcome Outcome)
	Exhausted(ctx context.Context, scope Scope, attempts int)
}

type nopObserver struct{}

func (nopObserver) AttemptFinished(context.Context, Scope, int, Outcome) {}
func (nopObserver) Exhausted(context.Context, Scope, int)                {}

// Config holds allocator settings
type Config struct {
	MaxAttempts     int             // Attempts before RetryExhausted (default 3)
	BackoffBase     time.Duration   // Base delay between conflicting attempts, 0 disables waiting
	DefaultPrefixes map[Kind]string // Fallback prefixes for scopes without configuration
	Widths          map[Kind]int    // Optional width overrides per kind
}

// DefaultConfig returns the reference allocator configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     DefaultMaxAttempts,
		DefaultPrefixes: DefaultPrefixes,
	}
}

// AllocatorOption configures an Allocator
type AllocatorOption func(*Allocator)

// WithObserver sets the telemetry observer
func WithObserver(o Observer) AllocatorOption {
	return func(a *Allocator) {
		if o != nil {
			a.observer = o
		}
	}
}

// WithSleep replaces the wait used between attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) AllocatorOption {
	return func(a *Allocator) {
		a.sleep = sleep
	}
}

// Allocator hands out the next identifier of a scope.
// It locks the scope before reading the current maximum and additionally treats a
// unique-constraint violation at commit as a lost race, retrying the whole transaction.
type Allocator struct {
	uow      UnitOfWork
	reader   Reader
	config   Config
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewAllocator creates a new Allocator
func NewAllocator(uow UnitOfWork, reader Reader, cfg Config, opts ...AllocatorOption) *Allocator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.DefaultPrefixes == nil {
		cfg.DefaultPrefixes = DefaultPrefixes
	}
	a := &Allocator{
		uow:      uow,
		reader:   reader,
		config:   cfg,
		observer: nopObserver{},
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns the next identifier of the scope, committed as issued
func (a *Allocator) Allocate(ctx context.Context, scope Scope) (string, error) {
	return a.AllocateWith(ctx, scope, nil)
}

// AllocateWith allocates the next identifier and runs persist in the same transaction.
// A unique violation raised by persist is treated like one raised by the reservation.
func (a *Allocator) AllocateWith(ctx context.Context, scope Scope, persist PersistFunc) (string, error) {
	scope, err := a.prepare(scope)
	if err != nil {
		return "", err
	}

	var last error
	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		// A cancelled caller stops here; attempts that never ran are not counted.
		if err := ctx.Err(); err != nil {
			return "", err
		}

		result := a.attempt(ctx, scope, persist)
		a.observer.AttemptFinished(ctx, scope, attempt, result.Outcome)

		switch result.Outcome {
		case OutcomeSuccess:
			return result.Identifier, nil
		case OutcomeFatal:
			return "", result.Err
		case OutcomeRetryableConflict:
			last = result.Err
			if attempt < a.config.MaxAttempts {
				if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
					return "", err
				}
			}
		}
	}

	a.observer.Exhausted(ctx, scope, a.config.MaxAttempts)
	return "", &RetryExhaustedError{Scope: scope, Attempts: a.config.MaxAttempts, Last: last}
}

// Preview computes the probable next identifier without locking or reserving anything.
// The value may be stale by the time it is used; only Allocate is authoritative.
func (a *Allocator) Preview(ctx context.Context, scope Scope) (string, error) {
	scope, err := a.prepare(scope)
	if err != nil {
		return "", err
	}
	next, err := nextNumber(ctx, a.reader, scope)
	if err != nil {
		return "", err
	}
	return scope.Format(next), nil
}

// Resolve applies the allocator's fallbacks and width overrides to a scope
func (a *Allocator) Resolve(scope Scope) Scope {
	scope = scope.Resolve(a.config.DefaultPrefixes)
	if w, ok := a.config.Widths[scope.Kind]; ok && w > 0 {
		scope.Width = w
	}
	if scope.Width == 0 {
		scope.Width = scope.Kind.DefaultWidth()
	}
	return scope
}

func (a *Allocator) prepare(scope Scope) (Scope, error) {
	scope = a.Resolve(scope)
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

func (a *Allocator) attempt(ctx context.Context, scope Scope, persist PersistFunc) AttemptResult {
	var identifier string
	err := a.uow.Do(ctx, func(ctx context.Context, store Store) error {
		if err := store.LockScope(ctx, scope); err != nil {
			return fmt.Errorf("lock scope %s: %w", scope, err)
		}
		next, err := nextNumber(ctx, store, scope)
		if err != nil {
			return err
		}
		identifier = scope.Format(next)
		if err := store.Reserve(ctx, scope, identifier, next); err != nil {
			return err
		}
		if persist != nil {
			return persist(ctx, store, identifier)
		}
		return nil
	})

	switch {
	case err == nil:
		return AttemptResult{Outcome: OutcomeSuccess, Identifier: identifier}
	case errors.Is(err, ErrUniqueConflict):
		return AttemptResult{Outcome: OutcomeRetryableConflict, Identifier: identifier, Err: err}
	default:
		return AttemptResult{Outcome: OutcomeFatal, Err: err}
	}
}

func (a *Allocator) backoff(attempt int) time.Duration {
	return fullJitter(exponential(a.config.BackoffBase, attempt-1))
}

// nextNumber computes max+1 for the scope. Default scopes never go below the
// total count of identifiers of their kind.
func nextNumber(ctx context.Context, reader Reader, scope Scope) (int64, error) {
	var current int64

	latest, found, err := reader.LatestIdentifier(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("read latest identifier for %s: %w", scope, err)
	}
	if found {
		n, ok := scope.ParseSuffix(latest)
		if !ok {
			return 0, fmt.Errorf("identifier %q does not belong to scope %s", latest, scope)
		}
		current = n
	}

	if scope.Default {
		count, err := reader.CountIdentifiers(ctx, scope.TenantID, scope.Kind)
		if err != nil {
			return 0, fmt.Errorf("count identifiers for %s: %w", scope.Kind, err)
		}
		current = max(current, count)
	}

	return current + 1, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
