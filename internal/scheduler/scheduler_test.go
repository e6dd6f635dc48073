package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/internal/domain/watermark"
)

type fakeWatermarkRepo struct {
	saved watermark.Watermark
}

func (f *fakeWatermarkRepo) Find(_ context.Context, tenantID uuid.UUID, system, entity string) (watermark.Watermark, error) {
	if f.saved.System == system && f.saved.Entity == entity {
		return f.saved, nil
	}

	return watermark.Watermark{TenantID: tenantID, System: system, Entity: entity}, nil
}

func (f *fakeWatermarkRepo) Upsert(_ context.Context, w watermark.Watermark) (watermark.Watermark, error) {
	f.saved = w
	return w, nil
}

type fakeSchedulerSyncRunRepo struct {
	runs    []*syncrun.SyncRun
	running *syncrun.SyncRun
}

func (f *fakeSchedulerSyncRunRepo) Create(_ context.Context, r *syncrun.SyncRun) (*syncrun.SyncRun, error) {
	r.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, r)
	return r, nil
}

func (f *fakeSchedulerSyncRunRepo) Find(_ context.Context, id int64) (*syncrun.SyncRun, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeSchedulerSyncRunRepo) Update(_ context.Context, r *syncrun.SyncRun) (*syncrun.SyncRun, error) {
	for i, existing := range f.runs {
		if existing.ID == r.ID {
			f.runs[i] = r
		}
	}
	return r, nil
}

func (f *fakeSchedulerSyncRunRepo) FindPendingOutboxByPurchaseOrder(_ context.Context, _ int64) (*syncrun.SyncRun, error) {
	return nil, nil
}

func (f *fakeSchedulerSyncRunRepo) ClaimNextOutboxRun(_ context.Context, _ time.Time) (*syncrun.SyncRun, error) {
	return nil, nil
}

func (f *fakeSchedulerSyncRunRepo) FindRunningByScope(_ context.Context, _ syncrun.Scope) (*syncrun.SyncRun, error) {
	return f.running, nil
}

func (f *fakeSchedulerSyncRunRepo) List(_ context.Context, _ syncrun.Scope, _ int, _ int64) ([]*syncrun.SyncRun, error) {
	return f.runs, nil
}

type fakePurchaseRequestRepo struct {
	saved *purchaserequest.PurchaseRequest
}

func (f *fakePurchaseRequestRepo) Create(_ context.Context, pr *purchaserequest.PurchaseRequest, items []purchaserequest.Item) (*purchaserequest.PurchaseRequest, []purchaserequest.Item, error) {
	return pr, items, nil
}
func (f *fakePurchaseRequestRepo) Find(_ context.Context, _ int64) (*purchaserequest.PurchaseRequest, error) {
	return f.saved, nil
}
func (f *fakePurchaseRequestRepo) FindItems(_ context.Context, _ int64) ([]purchaserequest.Item, error) {
	return nil, nil
}
func (f *fakePurchaseRequestRepo) FindItemsByIDs(_ context.Context, _ []int64) ([]purchaserequest.Item, error) {
	return nil, nil
}
func (f *fakePurchaseRequestRepo) List(_ context.Context, _ int, _ int64) ([]*purchaserequest.PurchaseRequest, error) {
	return nil, nil
}
func (f *fakePurchaseRequestRepo) Update(_ context.Context, pr *purchaserequest.PurchaseRequest) (*purchaserequest.PurchaseRequest, error) {
	f.saved = pr
	return pr, nil
}
func (f *fakePurchaseRequestRepo) Delete(_ context.Context, _ int64) error {
	return nil
}
func (f *fakePurchaseRequestRepo) UpsertByExternalID(_ context.Context, pr *purchaserequest.PurchaseRequest) (*purchaserequest.PurchaseRequest, error) {
	f.saved = pr
	return pr, nil
}

func TestSchedulerAdvancesWatermarkOnSuccess(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	pr := purchaserequest.PurchaseRequest{Number: "PR-0001", Status: purchaserequest.StatusPendingRfq}
	raw, err := json.Marshal(pr)
	require.NoError(t, err)

	wmRepo := &fakeWatermarkRepo{}
	runRepo := &fakeSchedulerSyncRunRepo{}
	prRepo := &fakePurchaseRequestRepo{}

	s := &Scheduler{
		TenantID:      uuid.New(),
		System:        "senior",
		WatermarkRepo: wmRepo,
		SyncRunRepo:   runRepo,
		Handlers: map[syncrun.Scope]ScopeHandler{
			syncrun.ScopePurchaseRequest: PurchaseRequestHandler{Repo: prRepo},
		},
	}

	gateway := &fakePullOnlyGateway{records: []erp.PulledRecord{
		{ExternalID: "ERP-1", UpdatedAt: now, Raw: raw},
	}}
	s.Gateway = gateway

	_, err = s.pullOnce(context.Background(), syncrun.ScopePurchaseRequest, s.Handlers[syncrun.ScopePurchaseRequest])
	require.NoError(t, err)

	require.NotNil(t, prRepo.saved)
	require.NotNil(t, prRepo.saved.ExternalID)
	assert.Equal(t, "ERP-1", *prRepo.saved.ExternalID)

	require.Len(t, runRepo.runs, 1)
	assert.Equal(t, syncrun.StatusSucceeded, runRepo.runs[0].Status)
	assert.Equal(t, 1, runRepo.runs[0].RecordsIn)
	assert.Equal(t, 1, runRepo.runs[0].RecordsUpserted)

	require.NotNil(t, wmRepo.saved.LastSuccessSourceUpdatedAt)
	assert.True(t, wmRepo.saved.LastSuccessSourceUpdatedAt.Equal(now))
	require.NotNil(t, wmRepo.saved.LastSuccessSourceID)
	assert.Equal(t, "ERP-1", *wmRepo.saved.LastSuccessSourceID)
}

func TestSchedulerEmptyBatchDoesNotMoveWatermark(t *testing.T) {
	wmRepo := &fakeWatermarkRepo{}
	runRepo := &fakeSchedulerSyncRunRepo{}
	prRepo := &fakePurchaseRequestRepo{}

	s := &Scheduler{
		TenantID:      uuid.New(),
		System:        "senior",
		WatermarkRepo: wmRepo,
		SyncRunRepo:   runRepo,
		Gateway:       &fakePullOnlyGateway{},
		Handlers: map[syncrun.Scope]ScopeHandler{
			syncrun.ScopePurchaseRequest: PurchaseRequestHandler{Repo: prRepo},
		},
	}

	_, err := s.pullOnce(context.Background(), syncrun.ScopePurchaseRequest, s.Handlers[syncrun.ScopePurchaseRequest])
	require.NoError(t, err)

	assert.Nil(t, wmRepo.saved.LastSuccessSourceUpdatedAt)
	require.Len(t, runRepo.runs, 1)
	assert.Equal(t, 0, runRepo.runs[0].RecordsIn)
}

func TestSchedulerFailureSchedulesBackoff(t *testing.T) {
	runRepo := &fakeSchedulerSyncRunRepo{}

	s := &Scheduler{
		TenantID:      uuid.New(),
		System:        "senior",
		WatermarkRepo: &fakeWatermarkRepo{},
		SyncRunRepo:   runRepo,
		Gateway:       &fakePullOnlyGateway{err: errors.New("erp unreachable")},
		Backoff:       BackoffConfig{MinBackoff: time.Minute, MaxBackoff: time.Hour},
		Handlers: map[syncrun.Scope]ScopeHandler{
			syncrun.ScopePurchaseRequest: PurchaseRequestHandler{Repo: &fakePurchaseRequestRepo{}},
		},
	}

	s.runScope(context.Background(), syncrun.ScopePurchaseRequest, s.Handlers[syncrun.ScopePurchaseRequest])

	require.Len(t, runRepo.runs, 1)
	assert.Equal(t, syncrun.StatusFailed, runRepo.runs[0].Status)

	st := s.scopeState(syncrun.ScopePurchaseRequest)
	assert.Equal(t, 1, st.consecutiveFailures)
	assert.True(t, st.nextRunAt.After(time.Now()))
}

func TestSchedulerSkipsWhenAnotherRunIsInFlight(t *testing.T) {
	runRepo := &fakeSchedulerSyncRunRepo{running: &syncrun.SyncRun{ID: 99, Status: syncrun.StatusRunning}}
	gateway := &fakePullOnlyGateway{}

	s := &Scheduler{
		TenantID:      uuid.New(),
		System:        "senior",
		WatermarkRepo: &fakeWatermarkRepo{},
		SyncRunRepo:   runRepo,
		Gateway:       gateway,
		Handlers: map[syncrun.Scope]ScopeHandler{
			syncrun.ScopePurchaseRequest: PurchaseRequestHandler{Repo: &fakePurchaseRequestRepo{}},
		},
	}

	s.runScope(context.Background(), syncrun.ScopePurchaseRequest, s.Handlers[syncrun.ScopePurchaseRequest])

	assert.Empty(t, runRepo.runs)
	assert.False(t, gateway.called)
}

func TestBackoffConfigDelayCapsAtMax(t *testing.T) {
	cfg := BackoffConfig{MinBackoff: time.Minute, MaxBackoff: 10 * time.Minute}

	assert.Equal(t, time.Minute, cfg.Delay(1))
	assert.Equal(t, 2*time.Minute, cfg.Delay(2))
	assert.Equal(t, 10*time.Minute, cfg.Delay(10))
}

// fakePullOnlyGateway satisfies erp.Gateway without needing the PO push
// path, which this package's tests never exercise.
type fakePullOnlyGateway struct {
	records    []erp.PulledRecord
	nextCursor string
	err        error
	called     bool
}

func (g *fakePullOnlyGateway) PushPurchaseOrder(_ context.Context, _ erpenvelope.Envelope) (erp.PushResult, error) {
	return erp.PushResult{}, nil
}

func (g *fakePullOnlyGateway) Pull(_ context.Context, _ string, _ time.Time, sinceID string) ([]erp.PulledRecord, string, error) {
	g.called = true

	if g.err != nil {
		return nil, sinceID, g.err
	}

	return g.records, g.nextCursor, nil
}
