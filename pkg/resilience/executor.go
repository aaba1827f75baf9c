package resilience

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Outcome tells the executor what to do with a failed attempt.
type Outcome struct {
	Retryable     bool
	RecordFailure bool
}

// Classifier maps an error to an Outcome.
type Classifier func(err error) Outcome

// Executor runs calls to an upstream with retries and one circuit breaker per operation name.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute calls fn until it succeeds, fails with a non retryable error or
// runs out of attempts. A nil classify uses ClassifyUpstreamError.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil operation")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = ClassifyUpstreamError
	}

	if !e.cfg.BreakerEnabled {
		return e.retry(ctx, op, fn, classify)
	}

	_, err := e.breaker(op, classify).Execute(func() (any, error) {
		return nil, e.retry(ctx, op, fn, classify)
	})
	return err
}

// State reports the breaker state of an operation, closed when it never ran.
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.breakers[operation]; ok {
		return b.State()
	}
	return gobreaker.StateClosed
}

func (e *Executor) retry(ctx context.Context, op string, fn func(context.Context) error, classify Classifier) error {
	backoff := e.cfg.RetryInitialBackoff

	var err error
	for attempt := 1; attempt <= e.cfg.RetryMaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if !classify(err).Retryable || attempt == e.cfg.RetryMaxAttempts {
			return err
		}

		wait := min(backoff, e.cfg.RetryMaxBackoff)
		log.Printf("⚠️ [resilience] %s attempt %d/%d failed, retrying in %v: %v",
			op, attempt, e.cfg.RetryMaxAttempts, wait, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		backoff = min(time.Duration(float64(backoff)*e.cfg.RetryMultiplier), e.cfg.RetryMaxBackoff)
	}
	return err
}

func (e *Executor) breaker(op string, classify Classifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[op]; ok {
		return b
	}

	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        op,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("🔌 [resilience] circuit %s: %s -> %s", name, from, to)
		},
	})
	e.breakers[op] = b
	return b
}

// IsCircuitOpen reports whether err was returned without calling the upstream.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// StatusError a non-2xx answer from an HTTP upstream.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Operation, e.StatusCode, body)
}

// ClassifyUpstreamError retries network errors and transient HTTP statuses.
// A cancelled caller is not held against the upstream; a timeout is, without retry.
func ClassifyUpstreamError(err error) Outcome {
	if err == nil {
		return Outcome{}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Outcome{RecordFailure: true}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return Outcome{Retryable: true, RecordFailure: true}
		}
		return Outcome{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Outcome{Retryable: true, RecordFailure: true}
	}
	return Outcome{RecordFailure: true}
}
