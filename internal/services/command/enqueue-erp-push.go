package command

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/criticalaction"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/internal/domain/syncrun"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// EnqueueErpPush is the critical push_to_erp action (C5). It is
// idempotent: if a SyncRun is already pending for this PurchaseOrder, the
// existing run is returned rather than a second one enqueued, and an
// order already accepted by the ERP short-circuits with already_accepted
// instead of queuing a pointless resend (spec §4.4, §4.5). The envelope
// is snapshotted once here — the worker must never reload the PO between
// enqueue and push.
func (uc *UseCase) EnqueueErpPush(ctx context.Context, purchaseOrderID int64, confirmation criticalaction.Confirmation) (*syncrun.SyncRun, error) {
	var run *syncrun.SyncRun

	// Best-effort fast path: two API instances racing to enqueue the
	// same PO fail one of them here, before either opens a transaction.
	// The database's exactly-one-pending check below is still the real
	// guard — a missed or unavailable lock just means both reach it.
	lockKey := "erp-outbox-enqueue:" + strconv.FormatInt(purchaseOrderID, 10)

	if uc.Locks != nil {
		acquired, lockErr := uc.Locks.Lock(ctx, lockKey, 30*time.Second)
		if lockErr == nil && acquired {
			defer func() { _ = uc.Locks.Unlock(ctx, lockKey) }()
		}
	}

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		po, err := uc.PurchaseOrderRepo.Find(ctx, purchaseOrderID)
		if err != nil {
			return err
		}

		if po.Status == purchaseorder.StatusErpAccepted {
			return apperr.EntityConflictError{
				EntityType: "PurchaseOrder",
				Code:       constant.ErrOutboxAlreadyPending.Error(),
				Title:      "Already Accepted",
				Message:    "already_accepted",
			}
		}

		if existing, err := uc.SyncRunRepo.FindPendingOutboxByPurchaseOrder(ctx, purchaseOrderID); err == nil && existing != nil {
			run = existing

			return nil
		}

		if err := checkAction("PurchaseOrder", flowpolicy.StageForPurchaseOrderStatus(string(po.Status)),
			string(po.Status), flowpolicy.ActionPushToErp); err != nil {
			return err
		}

		if err := uc.requireConfirmation(ctx, flowpolicy.ActionPushToErp, "PurchaseOrder", po.ID, confirmation); err != nil {
			return err
		}

		lines, err := uc.PurchaseOrderRepo.FindLines(ctx, purchaseOrderID)
		if err != nil {
			return err
		}

		envelope := erpenvelope.Build(*po, lines)
		if err := envelope.Validate(); err != nil {
			return apperr.ValidationError{
				EntityType: "PurchaseOrder",
				Code:       constant.ErrErpContractInvalid.Error(),
				Title:      "ERP Contract Invalid",
				Message:    err.Error(),
			}
		}

		canonical, err := json.Marshal(envelope)
		if err != nil {
			return err
		}

		payload := syncrun.OutboxPayload{
			Kind:            "purchase_order_push",
			PurchaseOrderID: purchaseOrderID,
			NextAttemptAt:   time.Now(),
			CanonicalPO:     canonical,
		}

		payloadRef, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		run, err = uc.SyncRunRepo.Create(ctx, &syncrun.SyncRun{
			Scope:      syncrun.ScopePurchaseOrder,
			Status:     syncrun.StatusRunning,
			Attempt:    0,
			PayloadRef: payloadRef,
			StartedAt:  time.Now(),
		})
		if err != nil {
			return err
		}

		previous := string(po.Status)
		po.Status = purchaseorder.StatusSentToErp

		if _, err := uc.PurchaseOrderRepo.Update(ctx, po); err != nil {
			return err
		}

		return uc.appendEvent(ctx, statusevent.EntityPurchaseOrder, po.ID, strPtr(previous),
			string(purchaseorder.StatusSentToErp), statusevent.ReasonPoPushQueued)
	})
	if err != nil {
		uc.logger().Errorf("enqueue erp push for purchase order %d: %v", purchaseOrderID, err)

		return nil, err
	}

	return run, nil
}
