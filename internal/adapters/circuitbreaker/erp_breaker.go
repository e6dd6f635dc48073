// Package circuitbreaker wires pkg/mcircuitbreaker around the ERP
// gateway (C6): one process-wide Breaker instance shared by every worker
// goroutine and scheduler cycle that talks to the ERP, per spec §5's
// "process-wide shared state" requirement.
package circuitbreaker

import (
	"context"
	"errors"

	"github.com/Lucasschwertz/procurement-core/pkg/mcircuitbreaker"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// ErpBreaker gates every outbound call to the ERP gateway (C9) behind a
// single shared circuit breaker.
type ErpBreaker struct {
	breaker *mcircuitbreaker.Breaker
	logger  mlog.Logger
}

// New builds an ErpBreaker named "erp-gateway", logging every state
// transition via logger instead of registering a separate metrics
// listener interface — mlog.Logger.WithFields already gives a structured
// sink an operator can alert on, with no extra dependency.
func New(cfg mcircuitbreaker.Config, logger mlog.Logger) (*ErpBreaker, error) {
	if logger == nil {
		logger = mlog.NoneLogger{}
	}

	eb := &ErpBreaker{logger: logger}

	b, err := mcircuitbreaker.New("erp-gateway", cfg, eb)
	if err != nil {
		return nil, err
	}

	eb.breaker = b

	return eb, nil
}

// OnCircuitBreakerStateChange implements mcircuitbreaker.StateListener.
func (eb *ErpBreaker) OnCircuitBreakerStateChange(event mcircuitbreaker.StateChangeEvent) {
	eb.logger.WithFields(
		"service", event.ServiceName,
		"from_state", event.FromState.String(),
		"to_state", event.ToState.String(),
		"total_failures", event.Counts.TotalFailures,
		"total_successes", event.Counts.TotalSuccesses,
	).Warnf("erp circuit breaker state change")
}

// State reports the breaker's current state.
func (eb *ErpBreaker) State() mcircuitbreaker.State {
	return eb.breaker.State()
}

var errNilResult = errors.New("circuitbreaker: gateway call returned a nil result")

// Call runs fn through the breaker. Errors, including
// gobreaker.ErrOpenState when the breaker is open, are returned
// unchanged; C7 recognizes the open-state case with IsOpen and releases
// the lease instead of counting an attempt. A nil result with no error
// is reported as errNilResult.
func (eb *ErpBreaker) Call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	result, err := eb.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, errNilResult
	}

	return result, nil
}

// IsOpen reports whether err is the breaker's open-state short-circuit.
func IsOpen(err error) bool {
	return mcircuitbreaker.IsOpenStateError(err)
}
