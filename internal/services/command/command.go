// Package command implements the transactional per-aggregate use cases
// (C4): purchase requests, RFQs, supplier invites and quotes, awards,
// purchase orders, and the ERP outbox enqueue path. Every exported method
// runs inside a single pkg/dbtx transaction and follows the transition
// protocol of spec §4.4: load, compute previous_status, reject if
// ERP-managed, ask the flow policy, ask the critical-action gate, mutate
// and append a StatusEvent, commit.
package command

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Lucasschwertz/procurement-core/internal/domain/award"
	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaserequest"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
	"github.com/Lucasschwertz/procurement-core/pkg/dbtx"
	"github.com/Lucasschwertz/procurement-core/pkg/mlog"
	"github.com/Lucasschwertz/procurement-core/pkg/nethttp"
)

// LockRepository is the distributed-lock port an enqueue path may use as
// a best-effort fast-path guard in front of a DB-level invariant. Every
// caller must keep working correctly with a nil LockRepository or one
// that always fails to acquire — the database transaction underneath is
// the actual source of truth. Satisfied structurally by
// internal/adapters/redis.Client.
type LockRepository interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// EventPublisher is the supplemental fan-out port a command may publish
// an appended StatusEvent to. A publish error is always non-fatal to the
// command that triggered it. Satisfied structurally by
// internal/adapters/rabbitmq.Connection.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// TokenIndex records which tenant issued a given RfqSupplierInvite
// token, so the public supplier portal — which carries no X-Tenant-Id —
// can resolve a tenant before constructing any C3 repository. Satisfied
// structurally by internal/adapters/redis.Client.
type TokenIndex interface {
	RememberToken(ctx context.Context, token string, tenantID uuid.UUID, ttl time.Duration) error
}

// UseCase aggregates every tenant-scoped repository a command needs,
// mirroring the teacher's services/command.UseCase{...Repositories}
// aggregation pattern.
type UseCase struct {
	DB *sql.DB

	PurchaseRequestRepo purchaserequest.Repository
	RfqRepo             rfq.Repository
	AwardRepo           award.Repository
	PurchaseOrderRepo   purchaseorder.Repository
	StatusEventRepo     statusevent.Repository
	SyncRunRepo         syncrun.Repository

	// Locks backs a best-effort cross-instance guard for EnqueueErpPush;
	// nil is a valid, fully-functional value (spec §5's "no distributed
	// consensus" — this is strictly an optimization, never relied upon
	// for correctness).
	Locks LockRepository

	// EventPublisher, when set, fans every appended StatusEvent out to a
	// broker alongside the durable append (C10). Optional.
	EventPublisher EventPublisher

	// Tokens indexes issued invite tokens by tenant for the public
	// portal. Optional; a nil Tokens means the portal can only be routed
	// against a single default tenant (internal/bootstrap documents this
	// tradeoff for single-tenant deployments).
	Tokens TokenIndex

	// TenantID identifies which tenant this UseCase's repositories are
	// bound to. It is not used for data access (every repository already
	// carries its own binding) — only to record that binding into Tokens
	// when an invite is issued.
	TenantID uuid.UUID

	// PublicAppURL is the base used to build supplier invite URLs
	// (spec §6.1, §6.5's PUBLIC_APP_URL).
	PublicAppURL string

	Logger mlog.Logger
}

// withTransaction is the one place every command obtains its transaction,
// so none of them can accidentally skip pkg/dbtx.
func (uc *UseCase) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbtx.RunInTransaction(ctx, uc.DB, fn)
}

func (uc *UseCase) logger() mlog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}

	return mlog.NoneLogger{}
}

// appendEvent is a small convenience wrapped by every operation so the
// StatusEvent always lands in the same transaction as the mutation that
// produced it (spec §4.10). When EventPublisher is set, the event is
// also fanned out to the broker at append time — at-least-once, since a
// rollback after this point is not un-published — which is acceptable
// because the broker feed is supplemental, never the source of truth.
func (uc *UseCase) appendEvent(ctx context.Context, entity statusevent.Entity, entityID int64, from *string, to string, reason statusevent.Reason) error {
	event, err := uc.StatusEventRepo.Append(ctx, &statusevent.Event{
		Entity:     entity,
		EntityID:   entityID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	})
	if err != nil {
		return err
	}

	uc.publishEvent(ctx, event)

	return nil
}

func (uc *UseCase) publishEvent(ctx context.Context, event *statusevent.Event) {
	if uc.EventPublisher == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		uc.logger().Warnf("marshal status event for publish: %v", err)

		return
	}

	routingKey := "procurement.status_event." + string(event.Entity)

	if err := uc.EventPublisher.Publish(ctx, routingKey, body); err != nil {
		uc.logger().Warnf("publish status event %s/%d: %v", event.Entity, event.EntityID, err)
	}
}

// rememberToken indexes token against this UseCase's tenant until ttl
// elapses. A Tokens failure never fails the invite command itself — the
// index is purely an optimization for the portal's tenant lookup.
func (uc *UseCase) rememberToken(ctx context.Context, token string, ttl time.Duration) {
	if uc.Tokens == nil {
		return
	}

	if err := uc.Tokens.RememberToken(ctx, token, uc.TenantID, ttl); err != nil {
		uc.logger().Warnf("remember invite token: %v", err)
	}
}

func strPtr(s string) *string { return &s }

// checkAction is step 4 of the transition protocol (spec §4.4): the
// requested action must be a member of the allowed actions for
// (stage, status), else the command rejects with FlowPolicyError (409),
// carrying the actual allowed actions and primary action back to the
// caller.
func checkAction(entityType string, stage flowpolicy.Stage, status string, action flowpolicy.Action) error {
	policy := flowpolicy.PolicyFor(stage, status)

	if policy.ActionAllowed(action) {
		return nil
	}

	allowed := make([]string, 0, len(policy.AllowedActions))
	for _, a := range policy.AllowedActions {
		allowed = append(allowed, string(a))
	}

	return apperr.FlowPolicyError{
		EntityType:      entityType,
		Code:            constant.ErrFlowPolicyViolation.Error(),
		Title:           "Action Not Allowed",
		Message:         "action is not allowed for the entity's current stage and status",
		Stage:           string(stage),
		Status:          status,
		RequestedAction: string(action),
		AllowedActions:  allowed,
		PrimaryAction:   string(policy.PrimaryAction),
	}
}

// requireConfirmation is step 5 of the transition protocol: a critical
// action must carry a satisfied confirmation (spec §4.2). Every
// confirmation actually required and satisfied is also recorded as an
// audit event alongside the entity it was accepted for.
func (uc *UseCase) requireConfirmation(ctx context.Context, action flowpolicy.Action, entityType string, entityID int64, confirmation criticalaction.Confirmation) error {
	if !criticalaction.Require(action, confirmation) {
		return apperr.ValidationError{
			Code:    constant.ErrCriticalActionNotConfirmed.Error(),
			Title:   "Confirmation Required",
			Message: "confirmation_required",
		}
	}

	if criticalaction.IsCritical(action) {
		uc.auditConfirmation(ctx, action, entityType, entityID, confirmation)
	}

	return nil
}

// auditConfirmation records the principal, confirmation mode, and target
// entity for a satisfied critical-action confirmation (spec §4.2) as a
// structured log line rather than a StatusEvent row — the append-only
// StatusEvent trail (C10) carries neither a principal nor a confirmation
// mode, and widening every command's aggregate for fields the domain
// model never asked for isn't worth it for what is, at bottom, an audit
// log concern.
func (uc *UseCase) auditConfirmation(ctx context.Context, action flowpolicy.Action, entityType string, entityID int64, confirmation criticalaction.Confirmation) {
	fields := []any{
		"action", string(action),
		"entity", entityType,
		"entity_id", entityID,
		"confirmation_mode", confirmation.Mode(),
	}

	if principal, ok := nethttp.PrincipalFromContext(ctx); ok {
		fields = append(fields, "tenant_id", principal.TenantID.String(), "principal_subject", principal.Subject, "principal_role", principal.Role)
	}

	uc.logger().WithFields(fields...).Info("critical action confirmed")
}
