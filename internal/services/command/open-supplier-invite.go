package command

import (
	"context"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// OpenSupplierInvite resolves a public portal token, lazily applying the
// expiry transition on access before deciding whether the open succeeds
// (spec §4.4): an invite whose expiry has elapsed is flipped to expired
// and rejected with invite_expired even though nothing had touched it
// since it was issued.
func (uc *UseCase) OpenSupplierInvite(ctx context.Context, token string) (*rfq.SupplierInvite, error) {
	var opened *rfq.SupplierInvite

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		inv, err := uc.RfqRepo.FindInviteByToken(ctx, token)
		if err != nil {
			return err
		}

		now := time.Now()

		if inv.IsExpired(now) && inv.Status != rfq.InviteStatusExpired && inv.Status != rfq.InviteStatusSubmitted {
			inv.Status = rfq.InviteStatusExpired

			if _, err := uc.RfqRepo.UpdateInvite(ctx, inv); err != nil {
				return err
			}
		}

		if inv.Status == rfq.InviteStatusExpired {
			return apperr.UnprocessableOperationError{
				EntityType: "RfqSupplierInvite",
				Code:       constant.ErrInviteTokenExpired.Error(),
				Title:      "Invite Expired",
				Message:    "invite_expired",
			}
		}

		if inv.Status == rfq.InviteStatusCancelled {
			return apperr.EntityNotFoundError{
				EntityType: "RfqSupplierInvite",
				Code:       constant.ErrInviteTokenNotFound.Error(),
				Title:      "Entity Not Found",
				Message:    "invite token not found",
			}
		}

		if inv.Status == rfq.InviteStatusPending {
			inv.Status = rfq.InviteStatusOpened
			inv.OpenedAt = &now

			updated, err := uc.RfqRepo.UpdateInvite(ctx, inv)
			if err != nil {
				return err
			}

			inv = updated
		}

		opened = inv

		return nil
	})
	if err != nil {
		uc.logger().Errorf("open supplier invite: %v", err)

		return nil, err
	}

	return opened, nil
}
