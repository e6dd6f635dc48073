// Package mcircuitbreaker wraps github.com/sony/gobreaker with the
// procurement core's own state/event vocabulary, grounded on the
// teacher's pkg/mcircuitbreaker listener contract (StateChangeEvent,
// Counts, StateListener). The teacher's production wrapper sits on top
// of an internal lib-commons circuit breaker manager that this pack does
// not carry a real module for, so this wrapper goes straight to
// sony/gobreaker, which the teacher's own go.mod already depends on.
package mcircuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// State mirrors gobreaker.State with the procurement core's own names, so
// callers never import gobreaker directly.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateUnknown
	}
}

// Counts mirrors gobreaker.Counts.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func convertCounts(c gobreaker.Counts) Counts {
	return Counts{
		Requests:             c.Requests,
		TotalSuccesses:       c.TotalSuccesses,
		TotalFailures:        c.TotalFailures,
		ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		ConsecutiveFailures:  c.ConsecutiveFailures,
	}
}

// StateChangeEvent is emitted every time the breaker transitions state.
type StateChangeEvent struct {
	ServiceName string
	FromState   State
	ToState     State
	Counts      Counts
}

// StateListener receives breaker state transitions, e.g. to drive the
// erp_circuit_state gauge (spec §4.7).
type StateListener interface {
	OnCircuitBreakerStateChange(event StateChangeEvent)
}

// Config tunes the breaker per spec §4.6/§6.5's ERP_CIRCUIT_* knobs.
type Config struct {
	ErrorRateThreshold float64
	MinSamples         uint32
	WindowSeconds      time.Duration
	OpenSeconds        time.Duration
	HalfOpenMaxCalls   uint32
}

// Breaker is the procurement core's circuit breaker around the ERP
// gateway, one instance per process (spec §5: "process-wide shared
// state").
type Breaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker
	listener StateListener
}

var (
	ErrNilServiceName = errors.New("mcircuitbreaker: service name cannot be empty")
)

// New builds a Breaker named name, tuned by cfg, forwarding every state
// transition to listener (which may be nil).
func New(name string, cfg Config, listener StateListener) (*Breaker, error) {
	if name == "" {
		return nil, ErrNilServiceName
	}

	b := &Breaker{name: name, listener: listener}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Interval:    cfg.WindowSeconds,
		Timeout:     cfg.OpenSeconds,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinSamples {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return failureRatio >= cfg.ErrorRateThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if b.listener == nil {
				return
			}

			b.listener.OnCircuitBreakerStateChange(StateChangeEvent{
				ServiceName: name,
				FromState:   convertState(from),
				ToState:     convertState(to),
				Counts:      convertCounts(b.cb.Counts()),
			})
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)

	return b, nil
}

// ServiceName returns the name this breaker was constructed with.
func (b *Breaker) ServiceName() string {
	return b.name
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	return convertState(b.cb.State())
}

// Counts reports the breaker's current counters. gobreaker clears them on
// every state change and, while closed, at the end of each WindowSeconds
// interval (a fixed window, not a sliding one).
func (b *Breaker) Counts() Counts {
	return convertCounts(b.cb.Counts())
}

// Execute runs fn through the breaker. When the breaker is open, fn is
// never called and gobreaker.ErrOpenState is returned — callers (C7) must
// treat that as a short-circuit, which does NOT count as a new failure
// sample (spec §4.6: "does not increment the failure samples again").
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// IsOpenStateError reports whether err is the short-circuit sentinel
// returned by Execute when the breaker is open.
func IsOpenStateError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}
