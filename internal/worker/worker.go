// Package worker runs the ERP outbox worker (C7): a single tenant-scoped
// loop that leases due SyncRun rows via
// syncrun.Repository.ClaimNextOutboxRun, pushes their canonical envelope
// through the circuit-breaker-gated ERP gateway, and advances the run and
// its PurchaseOrder toward a terminal state. Grounded on the teacher's
// bootstrap.RedisQueueConsumer: a ticker-driven loop with a bounded
// worker pool, shut down via context cancellation rather than its own
// signal handling (spec §4.6).
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/circuitbreaker"
	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpstatus"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/dbtx"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
	"github.com/Lucasschwertz/procurement-core/pkg/mretry"
)

// Default pacing, scaled for an outbound queue rather than the teacher's
// half-hourly redis sweep: the ERP push path is on the critical path of
// "how soon does the supplier's PO reach the ERP", so it polls in seconds.
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultMaxConcurrent = 8
)

// Worker drains one tenant's ERP outbox. A process that serves several
// tenants runs one Worker per tenant, each bound to that tenant's
// repositories — the same per-tenant construction discipline C3's
// repositories already enforce.
type Worker struct {
	DB *sql.DB

	SyncRunRepo       syncrun.Repository
	PurchaseOrderRepo purchaseorder.Repository
	StatusEventRepo   statusevent.Repository

	Gateway erp.Gateway
	Breaker *circuitbreaker.ErpBreaker

	// OutboxConfig tunes the first retry phase; DLQConfig takes over once
	// OutboxConfig.MaxRetries is exhausted, backing off from a longer
	// initial interval instead of giving up (spec §4.6's two-phase retry).
	OutboxConfig mretry.Config
	DLQConfig    mretry.Config

	PollInterval  time.Duration
	MaxConcurrent int

	Logger mlog.Logger
}

func (w *Worker) logger() mlog.Logger {
	if w.Logger != nil {
		return w.Logger
	}

	return mlog.NoneLogger{}
}

func (w *Worker) pollInterval() time.Duration {
	if w.PollInterval > 0 {
		return w.PollInterval
	}

	return DefaultPollInterval
}

func (w *Worker) maxConcurrent() int {
	if w.MaxConcurrent > 0 {
		return w.MaxConcurrent
	}

	return DefaultMaxConcurrent
}

// Run polls the outbox on PollInterval until ctx is cancelled. Each tick
// drains every currently-due run through a bounded worker pool before
// waiting for the next tick, so a backlog is worked off within one tick
// rather than one row per tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	w.logger().Info("erp outbox worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger().Info("erp outbox worker: shutting down")
			return nil

		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain repeatedly claims and processes due runs, using a semaphore to
// cap in-flight pushes, until a claim finds nothing left.
func (w *Worker) drain(ctx context.Context) {
	sem := make(chan struct{}, w.maxConcurrent())

	var wg sync.WaitGroup

	for {
		if ctx.Err() != nil {
			break
		}

		run, err := w.claimOne(ctx)
		if err != nil {
			w.logger().Errorf("erp outbox worker: claim failed: %v", err)
			break
		}

		if run == nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(run *syncrun.SyncRun) {
			defer func() {
				<-sem
				wg.Done()
			}()

			w.processOne(ctx, run)
		}(run)
	}

	wg.Wait()
}

// claimOne leases the next due run inside its own transaction, per C3's
// GetExecutor contract: ClaimNextOutboxRun's FOR UPDATE SKIP LOCKED only
// does its job when run against an ambient transaction.
func (w *Worker) claimOne(ctx context.Context) (*syncrun.SyncRun, error) {
	var claimed *syncrun.SyncRun

	err := dbtx.RunInTransaction(ctx, w.DB, func(ctx context.Context) error {
		run, err := w.SyncRunRepo.ClaimNextOutboxRun(ctx, time.Now())
		if err != nil {
			return err
		}

		claimed = run

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// processOne validates and pushes a single claimed run's envelope,
// updating the SyncRun, its PurchaseOrder, and the status event log
// inside one transaction (spec §4.4's commit discipline applies to the
// worker's own mutations exactly as it does to a command).
func (w *Worker) processOne(ctx context.Context, run *syncrun.SyncRun) {
	err := dbtx.RunInTransaction(ctx, w.DB, func(ctx context.Context) error {
		return w.push(ctx, run)
	})
	if err != nil {
		w.logger().Errorf("erp outbox worker: run %d: %v", run.ID, err)
	}
}

func (w *Worker) push(ctx context.Context, run *syncrun.SyncRun) error {
	payload, err := run.DecodeOutboxPayload()
	if err != nil {
		return w.failTerminal(ctx, run, payload, "outbox payload is not valid json: "+err.Error())
	}

	var envelope erpenvelope.Envelope
	if err := json.Unmarshal(payload.CanonicalPO, &envelope); err != nil {
		return w.failTerminal(ctx, run, payload, "canonical envelope is not valid json: "+err.Error())
	}

	if err := envelope.Validate(); err != nil {
		return w.failTerminal(ctx, run, payload, "erp_contract_invalid: "+err.Error())
	}

	po, err := w.PurchaseOrderRepo.Find(ctx, payload.PurchaseOrderID)
	if err != nil {
		return err
	}

	result, pushErr := w.Breaker.Call(ctx, func(ctx context.Context) (any, error) {
		return w.Gateway.PushPurchaseOrder(ctx, envelope)
	})

	if pushErr == nil {
		pushed, _ := result.(erp.PushResult)
		return w.succeed(ctx, run, po, pushed)
	}

	return w.retryOrFail(ctx, run, payload, po, pushErr)
}

func (w *Worker) succeed(ctx context.Context, run *syncrun.SyncRun, po *purchaseorder.PurchaseOrder, result erp.PushResult) error {
	now := time.Now()
	durationMs := now.Sub(run.StartedAt).Milliseconds()

	run.Status = syncrun.StatusSucceeded
	run.FinishedAt = &now
	run.DurationMs = &durationMs
	run.RecordsUpserted = 1

	if _, err := w.SyncRunRepo.Update(ctx, run); err != nil {
		return err
	}

	externalID := result.ExternalID
	previous := string(po.Status)
	po.ExternalID = &externalID
	po.Status = purchaseorder.StatusErpAccepted
	po.ErpLastError = nil

	if _, err := w.PurchaseOrderRepo.UpsertByExternalID(ctx, po); err != nil {
		return err
	}

	return w.appendEvent(ctx, po.ID, strPtr(previous), string(purchaseorder.StatusErpAccepted), statusevent.ReasonPoPushSucceeded)
}

// retryOrFail classifies pushErr (definitive vs transient, per spec's
// Open Question (a)) and either releases the lease, schedules the next
// attempt, or moves the run to its terminal failed state.
func (w *Worker) retryOrFail(ctx context.Context, run *syncrun.SyncRun, payload syncrun.OutboxPayload, po *purchaseorder.PurchaseOrder, pushErr error) error {
	// An open breaker short-circuited the call before it ever reached the
	// gateway: spec §4.7.b requires the lease released unchanged, with no
	// attempt increment and no failure sample recorded.
	if circuitbreaker.IsOpen(pushErr) {
		return w.releaseLease(ctx, run, payload)
	}

	if isDefinitive(pushErr) {
		return w.failTerminal(ctx, run, payload, pushErr.Error())
	}

	attempt := run.Attempt + 1
	cfg := w.OutboxConfig

	phaseAttempt := attempt
	if payload.DeadLetter {
		cfg = w.DLQConfig
		phaseAttempt = attempt - w.OutboxConfig.MaxRetries
	}

	if phaseAttempt > cfg.MaxRetries {
		if !payload.DeadLetter {
			// First phase exhausted: move into the slower dead-letter
			// retry lane instead of giving up outright.
			payload.DeadLetter = true
			payload.DeadLetterReason = pushErr.Error()

			return w.scheduleRetry(ctx, run, payload, po, attempt, w.DLQConfig.Backoff(1), pushErr)
		}

		return w.failTerminal(ctx, run, payload, pushErr.Error())
	}

	return w.scheduleRetry(ctx, run, payload, po, attempt, cfg.Backoff(phaseAttempt), pushErr)
}

// releaseLease handles an open-breaker short-circuit (spec §4.7.b): the
// current run keeps its status and attempt count untouched, only its
// next_attempt_at moves out so the lease is retried once the breaker
// allows calls through again.
func (w *Worker) releaseLease(ctx context.Context, run *syncrun.SyncRun, payload syncrun.OutboxPayload) error {
	cfg := w.OutboxConfig
	if payload.DeadLetter {
		cfg = w.DLQConfig
	}

	payload.NextAttemptAt = time.Now().Add(cfg.Backoff(1))

	encoded, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	run.PayloadRef = encoded

	_, err = w.SyncRunRepo.Update(ctx, run)

	return err
}

// scheduleRetry closes out the current run as failed, recording this
// attempt's own error/duration, and creates a fresh running child
// SyncRun chained to it via ParentSyncRunID — the contiguous
// parent_sync_run_id chain spec §4.5/§4.7.e requires, instead of
// overwriting the same row attempt after attempt.
func (w *Worker) scheduleRetry(ctx context.Context, run *syncrun.SyncRun, payload syncrun.OutboxPayload, po *purchaseorder.PurchaseOrder, attempt int, delay time.Duration, pushErr error) error {
	now := time.Now()
	durationMs := now.Sub(run.StartedAt).Milliseconds()

	summary := syncrun.TruncateErrorSummary(pushErr.Error())
	details := syncrun.TruncateErrorDetails(pushErr.Error())

	run.Status = syncrun.StatusFailed
	run.FinishedAt = &now
	run.DurationMs = &durationMs
	run.RecordsFailed = 1
	run.ErrorSummary = &summary
	run.ErrorDetails = &details

	if _, err := w.SyncRunRepo.Update(ctx, run); err != nil {
		return err
	}

	payload.NextAttemptAt = now.Add(delay)

	encoded, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	parentID := run.ID
	child := &syncrun.SyncRun{
		TenantID:        run.TenantID,
		Scope:           run.Scope,
		Status:          syncrun.StatusRunning,
		Attempt:         attempt,
		ParentSyncRunID: &parentID,
		PayloadRef:      encoded,
		StartedAt:       now,
	}

	if _, err := w.SyncRunRepo.Create(ctx, child); err != nil {
		return err
	}

	friendly := erpstatus.ReenvioNecessario.Message()
	po.ErpLastError = &friendly

	if _, err := w.PurchaseOrderRepo.Update(ctx, po); err != nil {
		return err
	}

	return w.appendEvent(ctx, po.ID, strPtr(string(po.Status)), string(po.Status), statusevent.ReasonPoPushRetryStarted)
}

// failTerminal moves run to its failed terminal state and the order to
// erp_error, recording the truncated reason per spec §4.8's length bounds.
func (w *Worker) failTerminal(ctx context.Context, run *syncrun.SyncRun, payload syncrun.OutboxPayload, reason string) error {
	now := time.Now()
	durationMs := now.Sub(run.StartedAt).Milliseconds()

	summary := syncrun.TruncateErrorSummary(reason)
	details := syncrun.TruncateErrorDetails(reason)

	run.Status = syncrun.StatusFailed
	run.FinishedAt = &now
	run.DurationMs = &durationMs
	run.RecordsFailed = 1
	run.ErrorSummary = &summary
	run.ErrorDetails = &details

	if _, err := w.SyncRunRepo.Update(ctx, run); err != nil {
		return err
	}

	// A payload that never decoded carries no usable purchase_order_id;
	// the run itself is still marked failed above so it stops being
	// reclaimed, even though there's no order to mark erp_error.
	if payload.PurchaseOrderID == 0 {
		return nil
	}

	po, err := w.PurchaseOrderRepo.Find(ctx, payload.PurchaseOrderID)
	if err != nil {
		w.logger().Errorf("erp outbox worker: run %d: could not load purchase order %d to record failure: %v", run.ID, payload.PurchaseOrderID, err)
		return nil
	}

	previous := string(po.Status)
	po.Status = purchaseorder.StatusErpError
	friendly := erpstatus.Rejeitado.Message()
	po.ErpLastError = &friendly

	if _, err := w.PurchaseOrderRepo.Update(ctx, po); err != nil {
		return err
	}

	return w.appendEvent(ctx, po.ID, strPtr(previous), string(purchaseorder.StatusErpError), statusevent.ReasonPoPushRejected)
}

func (w *Worker) appendEvent(ctx context.Context, poID int64, from *string, to string, reason statusevent.Reason) error {
	_, err := w.StatusEventRepo.Append(ctx, &statusevent.Event{
		Entity:     statusevent.EntityPurchaseOrder,
		EntityID:   poID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	})

	return err
}

func strPtr(s string) *string { return &s }

// isDefinitive reports whether err should dead-letter the run immediately
// rather than retry. Called only after retryOrFail has already ruled out
// an open-breaker short-circuit; any unclassified error is treated as
// transient, since a worker that gives up on the first unrecognized error
// would dead-letter far too eagerly.
func isDefinitive(err error) bool {
	var integrationErr apperr.IntegrationError
	if ok := asIntegrationError(err, &integrationErr); ok {
		return integrationErr.Definitive
	}

	return false
}

func asIntegrationError(err error, target *apperr.IntegrationError) bool {
	for err != nil {
		if ie, ok := err.(apperr.IntegrationError); ok {
			*target = ie
			return true
		}

		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = unwrapper.Unwrap()
	}

	return false
}

func marshalPayload(payload syncrun.OutboxPayload) ([]byte, error) {
	return json.Marshal(payload)
}
