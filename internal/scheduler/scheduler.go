// Package scheduler runs the incremental ERP pull cycle (C8): for each
// configured scope it asks the ERP gateway for everything past the
// stored watermark, upserts each record through C3, and advances the
// watermark to the last record seen — never moving it on an empty batch
// (spec §4.8, testable property 11). Grounded on the same
// bootstrap.RedisQueueConsumer ticker-loop shape C7's worker uses.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/internal/domain/watermark"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// ScopeHandler persists one pulled record into its domain table. Each
// supported scope in §6.3 gets its own handler; the scheduler itself
// never knows the shape of a scope's payload.
type ScopeHandler interface {
	Upsert(ctx context.Context, record erp.PulledRecord) error
}

// BackoffConfig implements spec §4.8's literal per-key backoff formula:
// next_run_at = now + min(min_backoff * 2^(failures-1), max_backoff).
// No jitter — the spec's outbox retry (C7) is the only one specified
// with jitter; the scheduler's formula is given without it.
type BackoffConfig struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Delay returns the backoff before the next attempt after failures
// consecutive failures (failures >= 1).
func (c BackoffConfig) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}

	delay := c.MinBackoff << (failures - 1)
	if delay > c.MaxBackoff || delay <= 0 {
		delay = c.MaxBackoff
	}

	return delay
}

// DefaultBackoffConfig matches the outbox worker's first-phase tuning,
// scaled for a pull cycle rather than a push: a minute floor, an hour
// ceiling.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{MinBackoff: time.Minute, MaxBackoff: time.Hour}
}

const (
	DefaultPollInterval  = 30 * time.Second
	DefaultMaxConcurrent = 4
	defaultPullLimit     = 200
)

type scopeState struct {
	nextRunAt           time.Time
	consecutiveFailures int
}

// Scheduler drains one tenant's enabled scopes. Like Worker, it is
// tenant-scoped — a process serving several tenants runs one Scheduler
// per tenant, wired in internal/bootstrap.
type Scheduler struct {
	TenantID uuid.UUID

	// System is the upstream's name, stamped into every watermark row's
	// key alongside TenantID and the scope (e.g. "senior").
	System string

	WatermarkRepo watermark.Repository
	SyncRunRepo   syncrun.Repository
	Gateway       erp.Gateway

	// Handlers maps an enabled scope to the repository-backed upsert it
	// drives. A scope with no entry here is simply never scheduled —
	// the scope list in a given deployment is exactly Handlers' keys.
	Handlers map[syncrun.Scope]ScopeHandler

	Backoff       BackoffConfig
	PollInterval  time.Duration
	MaxConcurrent int

	Logger mlog.Logger

	mu    sync.Mutex
	state map[syncrun.Scope]*scopeState
}

func (s *Scheduler) logger() mlog.Logger {
	if s.Logger != nil {
		return s.Logger
	}

	return mlog.NoneLogger{}
}

func (s *Scheduler) pollInterval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}

	return DefaultPollInterval
}

func (s *Scheduler) maxConcurrent() int {
	if s.MaxConcurrent > 0 {
		return s.MaxConcurrent
	}

	return DefaultMaxConcurrent
}

func (s *Scheduler) backoff() BackoffConfig {
	if s.Backoff.MinBackoff > 0 && s.Backoff.MaxBackoff > 0 {
		return s.Backoff
	}

	return DefaultBackoffConfig()
}

func (s *Scheduler) scopeState(scope syncrun.Scope) *scopeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		s.state = make(map[syncrun.Scope]*scopeState)
	}

	st, ok := s.state[scope]
	if !ok {
		st = &scopeState{}
		s.state[scope] = st
	}

	return st
}

// Run polls every enabled scope on PollInterval until ctx is cancelled. A
// slow tenant's scopes run with bounded concurrency, never serialized
// behind one another beyond that bound (spec §4.8: "the scheduler holds
// no locks across tenants; a slow tenant does not block others beyond
// the worker count bound").
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	s.logger().Info("erp sync scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger().Info("erp sync scheduler: shutting down")
			return nil

		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	sem := make(chan struct{}, s.maxConcurrent())

	var wg sync.WaitGroup

	for scope, handler := range s.Handlers {
		sem <- struct{}{}
		wg.Add(1)

		go func(scope syncrun.Scope, handler ScopeHandler) {
			defer func() {
				<-sem
				wg.Done()
			}()

			s.runScope(ctx, scope, handler)
		}(scope, handler)
	}

	wg.Wait()
}

// runScope executes one (tenant, scope) pull cycle, implementing §4.8's
// ordered checklist: per-key backoff, overlap guard, fetch, upsert,
// watermark advance, SyncRun bookkeeping.
func (s *Scheduler) runScope(ctx context.Context, scope syncrun.Scope, handler ScopeHandler) {
	st := s.scopeState(scope)

	now := time.Now()

	s.mu.Lock()
	skip := now.Before(st.nextRunAt)
	s.mu.Unlock()

	if skip {
		return
	}

	running, err := s.SyncRunRepo.FindRunningByScope(ctx, scope)
	if err != nil {
		s.logger().Errorf("sync scheduler: scope %s: overlap check failed: %v", scope, err)
		return
	}

	if running != nil {
		return
	}

	if _, err := s.pullOnce(ctx, scope, handler); err != nil {
		s.mu.Lock()
		st.consecutiveFailures++
		st.nextRunAt = time.Now().Add(s.backoff().Delay(st.consecutiveFailures))
		s.mu.Unlock()

		s.logger().Errorf("sync scheduler: scope %s: pull failed: %v", scope, err)

		return
	}

	s.mu.Lock()
	st.consecutiveFailures = 0
	st.nextRunAt = time.Time{}
	s.mu.Unlock()
}

type runStartPayload struct {
	SinceUpdatedAt *time.Time `json:"since_updated_at,omitempty"`
	SinceID        string     `json:"since_id,omitempty"`
}

// RunOnce triggers a single synchronous pull cycle for scope, bypassing
// the in-memory per-key backoff skip (an explicit admin trigger should
// never be silently dropped) but still honoring the cross-process
// overlap guard. It backs the admin sync-trigger endpoint (spec §6.1's
// POST /integrations/sync?scope=…).
func (s *Scheduler) RunOnce(ctx context.Context, scope syncrun.Scope) (*syncrun.SyncRun, error) {
	handler, ok := s.Handlers[scope]
	if !ok {
		return nil, fmt.Errorf("sync scheduler: no handler registered for scope %q", scope)
	}

	running, err := s.SyncRunRepo.FindRunningByScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	if running != nil {
		return running, nil
	}

	return s.pullOnce(ctx, scope, handler)
}

func (s *Scheduler) pullOnce(ctx context.Context, scope syncrun.Scope, handler ScopeHandler) (*syncrun.SyncRun, error) {
	wm, err := s.WatermarkRepo.Find(ctx, s.TenantID, s.System, string(scope))
	if err != nil {
		return nil, err
	}

	var since time.Time
	if wm.LastSuccessSourceUpdatedAt != nil {
		since = *wm.LastSuccessSourceUpdatedAt
	}

	var sinceID string
	if wm.LastSuccessSourceID != nil {
		sinceID = *wm.LastSuccessSourceID
	}

	startPayload, _ := json.Marshal(runStartPayload{SinceUpdatedAt: wm.LastSuccessSourceUpdatedAt, SinceID: sinceID})

	run := &syncrun.SyncRun{
		Scope:      scope,
		Status:     syncrun.StatusRunning,
		PayloadRef: startPayload,
		StartedAt:  time.Now(),
	}

	run, err = s.SyncRunRepo.Create(ctx, run)
	if err != nil {
		return nil, err
	}

	records, nextCursor, err := s.Gateway.Pull(ctx, string(scope), since, sinceID)
	if err != nil {
		return run, s.finishRun(ctx, run, 0, 0, err)
	}

	upserted := 0

	for _, record := range records {
		if err := handler.Upsert(ctx, record); err != nil {
			return run, s.finishRun(ctx, run, len(records), upserted, err)
		}

		upserted++
	}

	if len(records) > 0 {
		last := records[len(records)-1]

		cursor := &nextCursor
		if nextCursor == "" {
			cursor = nil
		}

		if wm.Advances(last.UpdatedAt, last.ExternalID) {
			wm = wm.Advance(last.UpdatedAt, last.ExternalID, cursor)

			if _, err := s.WatermarkRepo.Upsert(ctx, wm); err != nil {
				return run, s.finishRun(ctx, run, len(records), upserted, err)
			}
		}
	}

	return run, s.finishRun(ctx, run, len(records), upserted, nil)
}

func (s *Scheduler) finishRun(ctx context.Context, run *syncrun.SyncRun, recordsIn, recordsUpserted int, runErr error) error {
	now := time.Now()
	durationMs := now.Sub(run.StartedAt).Milliseconds()

	run.FinishedAt = &now
	run.DurationMs = &durationMs
	run.RecordsIn = recordsIn
	run.RecordsUpserted = recordsUpserted

	if runErr != nil {
		run.Status = syncrun.StatusFailed
		run.RecordsFailed = recordsIn - recordsUpserted

		summary := syncrun.TruncateErrorSummary(runErr.Error())
		details := syncrun.TruncateErrorDetails(runErr.Error())
		run.ErrorSummary = &summary
		run.ErrorDetails = &details
	} else {
		run.Status = syncrun.StatusSucceeded
	}

	if _, updateErr := s.SyncRunRepo.Update(ctx, run); updateErr != nil {
		return updateErr
	}

	return runErr
}
