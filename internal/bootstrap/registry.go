package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	awardpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/award"
	outboxpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/outbox"
	purchaseorderpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/purchaseorder"
	purchaserequestpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/purchaserequest"
	receiptpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/receipt"
	rfqpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/rfq"
	statuseventpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/statusevent"
	watermarkpg "github.com/Lucasschwertz/procurement-core/internal/adapters/postgres/watermark"
	"github.com/Lucasschwertz/procurement-core/internal/adapters/http/in"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/internal/scheduler"
	"github.com/Lucasschwertz/procurement-core/internal/services/command"
	"github.com/Lucasschwertz/procurement-core/internal/services/query"
	"github.com/Lucasschwertz/procurement-core/internal/worker"
	"github.com/Lucasschwertz/procurement-core/pkg/mretry"
)

// tenantStack is everything built once per tenant: the command/query
// dispatch the HTTP layer needs, plus the background Worker/Scheduler
// that drain that tenant's outbox and pull cycle. Building all of it
// together keeps a tenant's repositories, worker, and scheduler sharing
// one tenantID binding, matching C3's construction discipline.
type tenantStack struct {
	Handlers *in.TenantHandlers
	Worker   *worker.Worker
	Scheduler *scheduler.Scheduler
	cancel   context.CancelFunc
}

// registry lazily builds and caches a tenantStack per tenant id, and
// starts its background Worker/Scheduler goroutines the first time that
// tenant is seen. It is the multi-tenant analogue of the teacher's
// single bootstrap.Service — every tenant gets the equivalent of what a
// single-tenant process would build once at startup.
type registry struct {
	app *App

	mu     sync.Mutex
	stacks map[uuid.UUID]*tenantStack
}

func newRegistry(app *App) *registry {
	return &registry{app: app, stacks: make(map[uuid.UUID]*tenantStack)}
}

func (r *registry) getOrCreate(tenantID uuid.UUID) (*tenantStack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stack, ok := r.stacks[tenantID]; ok {
		return stack, nil
	}

	stack, err := r.build(tenantID)
	if err != nil {
		return nil, err
	}

	r.stacks[tenantID] = stack

	ctx, cancel := context.WithCancel(context.Background())
	stack.cancel = cancel

	go r.runWorker(ctx, tenantID, stack)
	go r.runScheduler(ctx, tenantID, stack)

	return stack, nil
}

func (r *registry) build(tenantID uuid.UUID) (*tenantStack, error) {
	a := r.app

	purchaseRequestRepo := purchaserequestpg.New(a.DB, tenantID)
	rfqRepo := rfqpg.New(a.DB, tenantID)
	awardRepo := awardpg.New(a.DB, tenantID)
	purchaseOrderRepo := purchaseorderpg.New(a.DB, tenantID)
	statusEventRepo := statuseventpg.New(a.DB, tenantID)
	syncRunRepo := outboxpg.New(a.DB, tenantID)
	watermarkRepo := watermarkpg.New(a.DB, tenantID)
	receiptRepo := receiptpg.New(a.DB, tenantID, a.Logger)

	cmd := &command.UseCase{
		DB:                  a.PrimaryDB,
		PurchaseRequestRepo: purchaseRequestRepo,
		RfqRepo:             rfqRepo,
		AwardRepo:           awardRepo,
		PurchaseOrderRepo:   purchaseOrderRepo,
		StatusEventRepo:     statusEventRepo,
		SyncRunRepo:         syncRunRepo,
		Locks:               a.Locks,
		EventPublisher:      a.Events,
		Tokens:              a.Tokens,
		TenantID:            tenantID,
		PublicAppURL:        a.Config.PublicAppURL,
		Logger:              a.Logger,
	}

	qry := &query.UseCase{
		PurchaseRequestRepo: purchaseRequestRepo,
		RfqRepo:             rfqRepo,
		AwardRepo:           awardRepo,
		PurchaseOrderRepo:   purchaseOrderRepo,
		StatusEventRepo:     statusEventRepo,
		SyncRunRepo:         syncRunRepo,
		WatermarkRepo:       watermarkRepo,
		ReceiptRepo:         receiptRepo,
		Logger:              a.Logger,
	}

	ph := &in.ProcurementHandler{Command: cmd, Query: qry, Logger: a.Logger}

	sched := &scheduler.Scheduler{
		TenantID:      tenantID,
		System:        "senior",
		WatermarkRepo: watermarkRepo,
		SyncRunRepo:   syncRunRepo,
		Gateway:       a.Gateway,
		Handlers: map[syncrun.Scope]scheduler.ScopeHandler{
			syncrun.ScopePurchaseRequest: scheduler.PurchaseRequestHandler{Repo: purchaseRequestRepo},
			syncrun.ScopePurchaseOrder:   scheduler.PurchaseOrderHandler{Repo: purchaseOrderRepo},
			syncrun.ScopeReceipt:         scheduler.ReceiptHandler{ReceiptRepo: receiptRepo, PurchaseOrderRepo: purchaseOrderRepo},
		},
		Backoff: scheduler.BackoffConfig{
			MinBackoff: time.Duration(a.Config.SyncSchedulerMinBackoffSeconds) * time.Second,
			MaxBackoff: time.Duration(a.Config.SyncSchedulerMaxBackoffSeconds) * time.Second,
		},
		PollInterval: time.Duration(a.Config.SyncSchedulerIntervalSeconds) * time.Second,
		Logger:       a.Logger,
	}

	ih := &in.IntegrationsHandler{ProcurementHandler: ph, Scheduler: sched}

	w := &worker.Worker{
		DB:                a.PrimaryDB,
		SyncRunRepo:       syncRunRepo,
		PurchaseOrderRepo: purchaseOrderRepo,
		StatusEventRepo:   statusEventRepo,
		Gateway:           a.Gateway,
		Breaker:           a.Breaker,
		OutboxConfig: mretry.Config{
			MaxRetries:     a.Config.ErpOutboxMaxAttempts,
			InitialBackoff: time.Duration(a.Config.ErpOutboxBackoffSeconds) * time.Second,
			MaxBackoff:     time.Duration(a.Config.ErpOutboxMaxBackoffSeconds) * time.Second,
			JitterFactor:   a.Config.ErpOutboxBackoffJitterRatio,
		},
		DLQConfig:     mretry.DefaultDLQConfig(),
		PollInterval:  time.Duration(a.Config.ErpOutboxWorkerIntervalSecs) * time.Second,
		MaxConcurrent: a.Config.ErpOutboxWorkerBatchSize,
		Logger:        a.Logger,
	}

	return &tenantStack{
		Handlers:  &in.TenantHandlers{Procurement: ph, Integrations: ih},
		Worker:    w,
		Scheduler: sched,
	}, nil
}

func (r *registry) runWorker(ctx context.Context, tenantID uuid.UUID, stack *tenantStack) {
	if err := stack.Worker.Run(ctx); err != nil && ctx.Err() == nil {
		r.app.Logger.Errorf("outbox worker for tenant %s stopped: %v", tenantID, err)
	}
}

func (r *registry) runScheduler(ctx context.Context, tenantID uuid.UUID, stack *tenantStack) {
	if !r.app.Config.SyncSchedulerEnabled {
		return
	}

	if err := stack.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		r.app.Logger.Errorf("sync scheduler for tenant %s stopped: %v", tenantID, err)
	}
}

// watchTenants polls tenant.Repository.List on Config.TenantWatchInterval
// and builds a tenantStack (and starts its goroutines) for every tenant
// not already cached, so a tenant registered after startup gets its
// Worker/Scheduler without a restart.
func (r *registry) watchTenants(ctx context.Context) {
	ticker := time.NewTicker(r.app.Config.TenantWatchInterval)
	defer ticker.Stop()

	r.discoverTenants(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.discoverTenants(ctx)
		}
	}
}

func (r *registry) discoverTenants(ctx context.Context) {
	tenants, err := r.app.TenantRepo.List(ctx)
	if err != nil {
		r.app.Logger.Errorf("list tenants: %v", err)

		return
	}

	for _, t := range tenants {
		if _, err := r.getOrCreate(t.ID); err != nil {
			r.app.Logger.Errorf("build tenant stack for %s: %v", t.ID, err)
		}
	}
}
