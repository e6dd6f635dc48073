package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/circuitbreaker"
	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpstatus"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/mcircuitbreaker"
	"github.com/Lucasschwertz/procurement-core/pkg/mretry"
)

// fakeSyncRunRepo is a minimal in-memory stand-in for syncrun.Repository,
// enough for the worker to exercise Update without a database. created
// and updated record every row passed to Create/Update, in call order, so
// a test can tell a freshly created child run apart from the original row
// it was chained from.
type fakeSyncRunRepo struct {
	run        *syncrun.SyncRun
	updateCall func(*syncrun.SyncRun)
	created    []*syncrun.SyncRun
	updated    []*syncrun.SyncRun
}

func (f *fakeSyncRunRepo) Create(_ context.Context, r *syncrun.SyncRun) (*syncrun.SyncRun, error) {
	f.run = r
	f.created = append(f.created, r)
	return r, nil
}

func (f *fakeSyncRunRepo) Find(_ context.Context, _ int64) (*syncrun.SyncRun, error) {
	return f.run, nil
}

func (f *fakeSyncRunRepo) Update(_ context.Context, r *syncrun.SyncRun) (*syncrun.SyncRun, error) {
	f.run = r
	f.updated = append(f.updated, r)
	if f.updateCall != nil {
		f.updateCall(r)
	}
	return r, nil
}

func (f *fakeSyncRunRepo) FindPendingOutboxByPurchaseOrder(_ context.Context, _ int64) (*syncrun.SyncRun, error) {
	return nil, nil
}

func (f *fakeSyncRunRepo) ClaimNextOutboxRun(_ context.Context, _ time.Time) (*syncrun.SyncRun, error) {
	return f.run, nil
}

func (f *fakeSyncRunRepo) FindRunningByScope(_ context.Context, _ syncrun.Scope) (*syncrun.SyncRun, error) {
	return nil, nil
}

func (f *fakeSyncRunRepo) List(_ context.Context, _ syncrun.Scope, _ int, _ int64) ([]*syncrun.SyncRun, error) {
	return nil, nil
}

type fakePurchaseOrderRepo struct {
	po *purchaseorder.PurchaseOrder
}

func (f *fakePurchaseOrderRepo) Create(_ context.Context, po *purchaseorder.PurchaseOrder, lines []purchaseorder.Line) (*purchaseorder.PurchaseOrder, []purchaseorder.Line, error) {
	f.po = po
	return po, lines, nil
}

func (f *fakePurchaseOrderRepo) Find(_ context.Context, _ int64) (*purchaseorder.PurchaseOrder, error) {
	return f.po, nil
}

func (f *fakePurchaseOrderRepo) FindLines(_ context.Context, _ int64) ([]purchaseorder.Line, error) {
	return nil, nil
}

func (f *fakePurchaseOrderRepo) List(_ context.Context, _ int, _ int64) ([]*purchaseorder.PurchaseOrder, error) {
	return nil, nil
}

func (f *fakePurchaseOrderRepo) Update(_ context.Context, po *purchaseorder.PurchaseOrder) (*purchaseorder.PurchaseOrder, error) {
	f.po = po
	return po, nil
}

func (f *fakePurchaseOrderRepo) UpsertByExternalID(_ context.Context, po *purchaseorder.PurchaseOrder) (*purchaseorder.PurchaseOrder, error) {
	f.po = po
	return po, nil
}

type fakeStatusEventRepo struct {
	events []*statusevent.Event
}

func (f *fakeStatusEventRepo) Append(_ context.Context, e *statusevent.Event) (*statusevent.Event, error) {
	f.events = append(f.events, e)
	return e, nil
}

func (f *fakeStatusEventRepo) FindByEntity(_ context.Context, _ statusevent.Entity, _ int64) ([]statusevent.Event, error) {
	return nil, nil
}

func (f *fakeStatusEventRepo) List(_ context.Context, _ int, _ int64) ([]statusevent.Event, error) {
	return nil, nil
}

type stubGateway struct {
	pushResult erp.PushResult
	pushErr    error
}

func (g *stubGateway) PushPurchaseOrder(_ context.Context, _ erpenvelope.Envelope) (erp.PushResult, error) {
	return g.pushResult, g.pushErr
}

func (g *stubGateway) Pull(_ context.Context, _ string, _ time.Time, sinceID string) ([]erp.PulledRecord, string, error) {
	return nil, sinceID, nil
}

func permissiveBreaker(t *testing.T) *circuitbreaker.ErpBreaker {
	t.Helper()

	b, err := circuitbreaker.New(mcircuitbreaker.Config{
		ErrorRateThreshold: 1,
		MinSamples:         1000,
		WindowSeconds:      time.Minute,
		OpenSeconds:        time.Minute,
		HalfOpenMaxCalls:   1,
	}, nil)
	require.NoError(t, err)

	return b
}

func envelopeJSON(t *testing.T, env erpenvelope.Envelope) []byte {
	t.Helper()

	b, err := json.Marshal(env)
	require.NoError(t, err)

	return b
}

func validEnvelope() erpenvelope.Envelope {
	return erpenvelope.Envelope{
		SchemaName:    erpenvelope.SchemaName,
		SchemaVersion: erpenvelope.SchemaVersion,
		WorkspaceID:   uuid.New(),
		ExternalRef:   "PO-0001",
		SupplierName:  "Acme Supplies",
		Currency:      "BRL",
		TotalAmount:   decimal.NewFromInt(100),
		Lines: []erpenvelope.Line{
			{LineNo: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func newPayload(t *testing.T, env erpenvelope.Envelope, poID int64) syncrun.OutboxPayload {
	return syncrun.OutboxPayload{
		Kind:            "purchase_order_push",
		PurchaseOrderID: poID,
		NextAttemptAt:   time.Now(),
		CanonicalPO:     envelopeJSON(t, env),
	}
}

func newRun(t *testing.T, payload syncrun.OutboxPayload) *syncrun.SyncRun {
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)

	return &syncrun.SyncRun{
		ID:         1,
		Scope:      syncrun.ScopePurchaseOrder,
		Status:     syncrun.StatusRunning,
		Attempt:    0,
		PayloadRef: encoded,
		StartedAt:  time.Now(),
	}
}

func TestWorkerPushSucceeds(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway:           &stubGateway{pushResult: erp.PushResult{ExternalID: "SENIOR-OC-000001", AcceptedAt: time.Now()}},
		Breaker:           permissiveBreaker(t),
		OutboxConfig:      testOutboxConfig(),
		DLQConfig:         testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, syncrun.StatusSucceeded, syncRepo.run.Status)
	assert.Equal(t, purchaseorder.StatusErpAccepted, poRepo.po.Status)
	require.NotNil(t, poRepo.po.ExternalID)
	assert.Equal(t, "SENIOR-OC-000001", *poRepo.po.ExternalID)
	require.Len(t, eventRepo.events, 1)
	assert.Equal(t, statusevent.ReasonPoPushSucceeded, eventRepo.events[0].Reason)
}

func TestWorkerDefinitiveFailureDeadLettersImmediately(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway: &stubGateway{pushErr: apperr.IntegrationError{
			Code:       "ERP_REJECTED",
			Message:    "invalid supplier tax id",
			Definitive: true,
		}},
		Breaker:      permissiveBreaker(t),
		OutboxConfig: testOutboxConfig(),
		DLQConfig:    testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, syncrun.StatusFailed, syncRepo.run.Status)
	assert.Equal(t, purchaseorder.StatusErpError, poRepo.po.Status)
	require.Len(t, eventRepo.events, 1)
	assert.Equal(t, statusevent.ReasonPoPushRejected, eventRepo.events[0].Reason)
}

func TestWorkerTransientFailureSchedulesRetry(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway: &stubGateway{pushErr: apperr.IntegrationError{
			Code:       "ERP_TIMEOUT",
			Message:    "context deadline exceeded",
			Definitive: false,
		}},
		Breaker:      permissiveBreaker(t),
		OutboxConfig: testOutboxConfig(),
		DLQConfig:    testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, syncrun.StatusRunning, syncRepo.run.Status)
	assert.Equal(t, 1, syncRepo.run.Attempt)
	require.Len(t, eventRepo.events, 1)
	assert.Equal(t, statusevent.ReasonPoPushRetryStarted, eventRepo.events[0].Reason)

	decoded, err := syncRepo.run.DecodeOutboxPayload()
	require.NoError(t, err)
	assert.False(t, decoded.DeadLetter)
	assert.True(t, decoded.NextAttemptAt.After(time.Now()))
}

func TestWorkerExhaustedRetriesMoveToDeadLetterLane(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)
	run.Attempt = testOutboxConfig().MaxRetries

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway: &stubGateway{pushErr: apperr.IntegrationError{
			Code:       "ERP_TIMEOUT",
			Message:    "still failing",
			Definitive: false,
		}},
		Breaker:      permissiveBreaker(t),
		OutboxConfig: testOutboxConfig(),
		DLQConfig:    testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, syncrun.StatusRunning, syncRepo.run.Status)

	decoded, err := syncRepo.run.DecodeOutboxPayload()
	require.NoError(t, err)
	assert.True(t, decoded.DeadLetter)
}

func TestWorkerInvalidEnvelopeIsDefinitive(t *testing.T) {
	env := validEnvelope()
	env.Lines = nil
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway:           &stubGateway{},
		Breaker:           permissiveBreaker(t),
		OutboxConfig:      testOutboxConfig(),
		DLQConfig:         testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, syncrun.StatusFailed, syncRepo.run.Status)
	assert.Equal(t, purchaseorder.StatusErpError, poRepo.po.Status)
}

func TestIsDefinitiveUnknownErrorIsTransient(t *testing.T) {
	assert.False(t, isDefinitive(errors.New("boom")))
}

// openBreaker returns an ErpBreaker already tripped open: one call
// through it with a failing fn, under a config that opens on the very
// first sample, leaves every subsequent call short-circuited with
// gobreaker.ErrOpenState.
func openBreaker(t *testing.T) *circuitbreaker.ErpBreaker {
	t.Helper()

	b, err := circuitbreaker.New(mcircuitbreaker.Config{
		ErrorRateThreshold: 0,
		MinSamples:         1,
		WindowSeconds:      time.Minute,
		OpenSeconds:        time.Hour,
		HalfOpenMaxCalls:   1,
	}, nil)
	require.NoError(t, err)

	_, err = b.Call(context.Background(), func(_ context.Context) (any, error) {
		return nil, errors.New("prime the breaker open")
	})
	require.Error(t, err)
	require.Equal(t, mcircuitbreaker.StateOpen, b.State())

	return b
}

func TestWorkerOpenBreakerReleasesLeaseWithoutIncrementingAttempt(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway:           &stubGateway{pushResult: erp.PushResult{ExternalID: "SENIOR-OC-000001"}},
		Breaker:           openBreaker(t),
		OutboxConfig:      testOutboxConfig(),
		DLQConfig:         testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, syncrun.StatusRunning, syncRepo.run.Status)
	assert.Equal(t, 0, syncRepo.run.Attempt)
	assert.Empty(t, syncRepo.created)
	assert.Empty(t, eventRepo.events)
	assert.Nil(t, poRepo.po.ErpLastError)

	decoded, err := syncRepo.run.DecodeOutboxPayload()
	require.NoError(t, err)
	assert.True(t, decoded.NextAttemptAt.After(time.Now()))
}

func TestWorkerTransientFailureChainsChildSyncRun(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)
	run.ID = 7

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway: &stubGateway{pushErr: apperr.IntegrationError{
			Code:       "ERP_TIMEOUT",
			Message:    "context deadline exceeded",
			Definitive: false,
		}},
		Breaker:      permissiveBreaker(t),
		OutboxConfig: testOutboxConfig(),
		DLQConfig:    testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	require.Len(t, syncRepo.updated, 1)
	assert.Equal(t, syncrun.StatusFailed, syncRepo.updated[0].Status)
	assert.Equal(t, int64(7), syncRepo.updated[0].ID)

	require.Len(t, syncRepo.created, 1)
	child := syncRepo.created[0]
	assert.Equal(t, syncrun.StatusRunning, child.Status)
	assert.Equal(t, 1, child.Attempt)
	require.NotNil(t, child.ParentSyncRunID)
	assert.Equal(t, int64(7), *child.ParentSyncRunID)

	require.NotNil(t, poRepo.po.ErpLastError)
	assert.Equal(t, erpstatus.ReenvioNecessario.Message(), *poRepo.po.ErpLastError)
}

func TestWorkerFailTerminalNeverLeaksRawGatewayText(t *testing.T) {
	env := validEnvelope()
	payload := newPayload(t, env, 42)
	run := newRun(t, payload)

	syncRepo := &fakeSyncRunRepo{run: run}
	poRepo := &fakePurchaseOrderRepo{po: &purchaseorder.PurchaseOrder{ID: 42, Status: purchaseorder.StatusSentToErp}}
	eventRepo := &fakeStatusEventRepo{}

	rawBody := "supplier tax id XYZ123 rejected: internal trace abc-def-123"

	w := &Worker{
		SyncRunRepo:       syncRepo,
		PurchaseOrderRepo: poRepo,
		StatusEventRepo:   eventRepo,
		Gateway: &stubGateway{pushErr: apperr.IntegrationError{
			Code:       "ERP_REJECTED",
			Message:    rawBody,
			Definitive: true,
		}},
		Breaker:      permissiveBreaker(t),
		OutboxConfig: testOutboxConfig(),
		DLQConfig:    testDLQConfig(),
	}

	err := w.push(context.Background(), run)
	require.NoError(t, err)

	require.NotNil(t, poRepo.po.ErpLastError)
	assert.Equal(t, erpstatus.Rejeitado.Message(), *poRepo.po.ErpLastError)
	assert.NotContains(t, *poRepo.po.ErpLastError, "XYZ123")
	assert.NotContains(t, *poRepo.po.ErpLastError, "abc-def-123")
}

func testOutboxConfig() mretry.Config {
	return mretry.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Second,
		JitterFactor:   0,
	}
}

func testDLQConfig() mretry.Config {
	return mretry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Second,
		JitterFactor:   0,
	}
}
