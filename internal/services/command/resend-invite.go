package command

import (
	"context"
	"fmt"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
)

// ResendInviteInput optionally overrides the expiry window a reissued
// invite carries.
type ResendInviteInput struct {
	InviteID      int64
	ExpiresInDays *int
}

// ResendInvite reissues a fresh token and expiry for an existing invite
// without disturbing which items or supplier it names — a supplement to
// the base spec for the common case of a link a supplier lost or let
// lapse.
func (uc *UseCase) ResendInvite(ctx context.Context, in ResendInviteInput) (*InvitedSupplier, error) {
	var result *InvitedSupplier

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		inv, err := uc.RfqRepo.FindInvite(ctx, in.InviteID)
		if err != nil {
			return err
		}

		if err := checkAction("RfqSupplierInvite", flowpolicy.StageForInviteStatus(string(inv.Status)),
			string(inv.Status), flowpolicy.ActionResendInvite); err != nil {
			return err
		}

		days := defaultInviteExpiryDays
		if in.ExpiresInDays != nil {
			days = *in.ExpiresInDays
		}

		if days < minInviteExpiryDays {
			days = minInviteExpiryDays
		} else if days > maxInviteExpiryDays {
			days = maxInviteExpiryDays
		}

		token, err := newInviteToken()
		if err != nil {
			return err
		}

		inv.Token = token
		inv.Status = rfq.InviteStatusPending
		inv.ExpiresAt = time.Now().Add(time.Duration(days) * 24 * time.Hour)
		inv.OpenedAt = nil
		inv.SubmittedAt = nil

		updated, err := uc.RfqRepo.UpdateInvite(ctx, inv)
		if err != nil {
			return err
		}

		uc.rememberToken(ctx, updated.Token, time.Until(updated.ExpiresAt))

		result = &InvitedSupplier{
			Invite: *updated,
			URL:    fmt.Sprintf("%s/fornecedor/convite/%s", uc.PublicAppURL, updated.Token),
		}

		return nil
	})
	if err != nil {
		uc.logger().Errorf("resend invite %d: %v", in.InviteID, err)

		return nil, err
	}

	return result, nil
}
