package in

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/internal/services/query"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
)

// fakePurchaseRequestRepo is the purchaserequest.Repository fake this
// package's handler tests drive; it keeps just enough state to make
// Create/Find observable.
type fakePurchaseRequestRepo struct {
	created *purchaserequest.PurchaseRequest
	found   *purchaserequest.PurchaseRequest
}

func (f *fakePurchaseRequestRepo) Create(_ context.Context, pr *purchaserequest.PurchaseRequest, items []purchaserequest.Item) (*purchaserequest.PurchaseRequest, []purchaserequest.Item, error) {
	pr.ID = 1
	f.created = pr

	return pr, items, nil
}
func (f *fakePurchaseRequestRepo) Find(_ context.Context, id int64) (*purchaserequest.PurchaseRequest, error) {
	return f.found, nil
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
	return pr, nil
}
func (f *fakePurchaseRequestRepo) Delete(_ context.Context, _ int64) error { return nil }
func (f *fakePurchaseRequestRepo) UpsertByExternalID(_ context.Context, pr *purchaserequest.PurchaseRequest) (*purchaserequest.PurchaseRequest, error) {
	return pr, nil
}

type fakeStatusEventRepo struct {
	events []statusevent.Event
}

func (f *fakeStatusEventRepo) Append(_ context.Context, e *statusevent.Event) (*statusevent.Event, error) {
	e.ID = int64(len(f.events) + 1)
	f.events = append(f.events, *e)

	return e, nil
}
func (f *fakeStatusEventRepo) FindByEntity(_ context.Context, _ statusevent.Entity, _ int64) ([]statusevent.Event, error) {
	return f.events, nil
}
func (f *fakeStatusEventRepo) List(_ context.Context, _ int, _ int64) ([]statusevent.Event, error) {
	return f.events, nil
}

type fakePurchaseOrderRepo struct {
	found *purchaseorder.PurchaseOrder
}

func (f *fakePurchaseOrderRepo) Create(_ context.Context, po *purchaseorder.PurchaseOrder, lines []purchaseorder.Line) (*purchaseorder.PurchaseOrder, []purchaseorder.Line, error) {
	return po, lines, nil
}
func (f *fakePurchaseOrderRepo) Find(_ context.Context, _ int64) (*purchaseorder.PurchaseOrder, error) {
	return f.found, nil
}
func (f *fakePurchaseOrderRepo) FindLines(_ context.Context, _ int64) ([]purchaseorder.Line, error) {
	return nil, nil
}
func (f *fakePurchaseOrderRepo) List(_ context.Context, _ int, _ int64) ([]*purchaseorder.PurchaseOrder, error) {
	return nil, nil
}
func (f *fakePurchaseOrderRepo) Update(_ context.Context, po *purchaseorder.PurchaseOrder) (*purchaseorder.PurchaseOrder, error) {
	return po, nil
}
func (f *fakePurchaseOrderRepo) UpsertByExternalID(_ context.Context, po *purchaseorder.PurchaseOrder) (*purchaseorder.PurchaseOrder, error) {
	return po, nil
}

type fakeSyncRunRepo struct {
	pending *syncrun.SyncRun
}

func (f *fakeSyncRunRepo) Create(_ context.Context, r *syncrun.SyncRun) (*syncrun.SyncRun, error) {
	return r, nil
}
func (f *fakeSyncRunRepo) Find(_ context.Context, _ int64) (*syncrun.SyncRun, error) { return nil, nil }
func (f *fakeSyncRunRepo) Update(_ context.Context, r *syncrun.SyncRun) (*syncrun.SyncRun, error) {
	return r, nil
}
func (f *fakeSyncRunRepo) FindPendingOutboxByPurchaseOrder(_ context.Context, _ int64) (*syncrun.SyncRun, error) {
	return f.pending, nil
}
func (f *fakeSyncRunRepo) ClaimNextOutboxRun(_ context.Context, _ time.Time) (*syncrun.SyncRun, error) {
	return nil, nil
}
func (f *fakeSyncRunRepo) FindRunningByScope(_ context.Context, _ syncrun.Scope) (*syncrun.SyncRun, error) {
	return nil, nil
}
func (f *fakeSyncRunRepo) List(_ context.Context, _ syncrun.Scope, _ int, _ int64) ([]*syncrun.SyncRun, error) {
	return nil, nil
}

// newTestApp wires a ProcurementHandler backed by sqlmock (so
// command.UseCase.withTransaction's Begin/Commit succeeds) and the fakes
// above, mounted behind the same route tree NewRouter builds.
func newTestApp(t *testing.T, prRepo *fakePurchaseRequestRepo, poRepo *fakePurchaseOrderRepo, syncRepo *fakeSyncRunRepo, seRepo *fakeStatusEventRepo) *fiber.App {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	if seRepo == nil {
		seRepo = &fakeStatusEventRepo{}
	}
	if syncRepo == nil {
		syncRepo = &fakeSyncRunRepo{}
	}
	if poRepo == nil {
		poRepo = &fakePurchaseOrderRepo{}
	}
	if prRepo == nil {
		prRepo = &fakePurchaseRequestRepo{}
	}

	cmd := &command.UseCase{
		DB:                  db,
		PurchaseRequestRepo: prRepo,
		PurchaseOrderRepo:   poRepo,
		StatusEventRepo:     seRepo,
		SyncRunRepo:         syncRepo,
	}
	qry := &query.UseCase{
		PurchaseRequestRepo: prRepo,
		PurchaseOrderRepo:   poRepo,
		StatusEventRepo:     seRepo,
		SyncRunRepo:         syncRepo,
	}

	ph := &ProcurementHandler{Command: cmd, Query: qry}
	ih := &IntegrationsHandler{ProcurementHandler: ph}
	hh := &HealthHandler{DB: db}

	return NewRouter(ph, ih, hh, mlog.NoneLogger{})
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}

	return resp.StatusCode, decoded
}

func TestHealthRequiresNoPrincipal(t *testing.T) {
	app := newTestApp(t, nil, nil, nil, nil)

	status, body := doRequest(t, app, "GET", "/health", nil, nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestProcurementRoutesRejectMissingTenant(t *testing.T) {
	app := newTestApp(t, nil, nil, nil, nil)

	status, _ := doRequest(t, app, "GET", "/api/procurement/solicitacoes", nil, nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCreatePurchaseRequestRejectsEmptyItems(t *testing.T) {
	app := newTestApp(t, nil, nil, nil, nil)

	body := CreatePurchaseRequestBody{
		Number:      "PR-0001",
		RequestedBy: "alice",
		Department:  "ops",
		Items:       nil,
	}

	status, _ := doRequest(t, app, "POST", "/api/procurement/solicitacoes", body, map[string]string{
		"X-Tenant-Id": uuid.New().String(),
	})

	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCreatePurchaseRequestSucceeds(t *testing.T) {
	prRepo := &fakePurchaseRequestRepo{}
	app := newTestApp(t, prRepo, nil, nil, nil)

	body := CreatePurchaseRequestBody{
		Number:      "PR-0001",
		RequestedBy: "alice",
		Department:  "ops",
		Items: []CreatePurchaseRequestItem{
			{Description: "widgets", Quantity: 10, Uom: "ea"},
		},
	}

	status, resp := doRequest(t, app, "POST", "/api/procurement/solicitacoes", body, map[string]string{
		"X-Tenant-Id": uuid.New().String(),
	})

	require.Equal(t, fiber.StatusCreated, status)
	assert.EqualValues(t, 1, resp["items_created"])
	require.NotNil(t, prRepo.created)
	assert.Equal(t, "PR-0001", prRepo.created.Number)
}

func TestEnqueueErpPushIsIdempotentWhenAlreadyAccepted(t *testing.T) {
	poRepo := &fakePurchaseOrderRepo{found: &purchaseorder.PurchaseOrder{
		ID:     7,
		Status: purchaseorder.StatusErpAccepted,
	}}
	app := newTestApp(t, nil, poRepo, nil, nil)

	status, resp := doRequest(t, app, "POST", "/api/procurement/purchase-orders/7/push-to-erp?confirm=true", nil, map[string]string{
		"X-Tenant-Id": uuid.New().String(),
	})

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(purchaseorder.StatusErpAccepted), resp["status"])
	assert.Equal(t, false, resp["queued"])
}
