// Package mock is a deterministic stand-in ERP gateway for local
// development and tests: it never makes a network call, accepts every
// well-formed envelope, and hands back a predictable external id so
// assertions in tests don't have to deal with random identifiers.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
)

// Gateway is the in-memory ERP stand-in. The zero value is ready to use.
type Gateway struct {
	counter atomic.Int64

	// RejectRef, if set, makes PushPurchaseOrder return a definitive
	// IntegrationError-shaped failure whenever envelope.ExternalRef
	// matches — lets a test exercise the dead-letter path deterministically.
	RejectRef string
}

var _ erp.Gateway = (*Gateway)(nil)

// PushPurchaseOrder accepts every envelope that passes erpenvelope.Validate
// and returns a SENIOR-style external id numbered by an in-process
// counter, e.g. "SENIOR-OC-000011".
func (g *Gateway) PushPurchaseOrder(_ context.Context, envelope erpenvelope.Envelope) (erp.PushResult, error) {
	if err := envelope.Validate(); err != nil {
		return erp.PushResult{}, err
	}

	if g.RejectRef != "" && envelope.ExternalRef == g.RejectRef {
		return erp.PushResult{}, apperr.IntegrationError{
			Code:       "ERP_REJECTED",
			Definitive: true,
			Err:        mockRejection{ref: envelope.ExternalRef},
		}
	}

	n := g.counter.Add(1)

	return erp.PushResult{
		ExternalID: fmt.Sprintf("SENIOR-OC-%06d", n),
		AcceptedAt: time.Now(),
	}, nil
}

// Pull always returns an empty batch and the same cursor it was given —
// the mock gateway has nothing upstream to pull, by design.
func (g *Gateway) Pull(_ context.Context, _ string, _ time.Time, sinceID string) ([]erp.PulledRecord, string, error) {
	return nil, sinceID, nil
}

type mockRejection struct {
	ref string
}

func (m mockRejection) Error() string {
	return "mock erp gateway rejected purchase order " + m.ref
}
