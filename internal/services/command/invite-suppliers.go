package command

import (
	"context"
	"fmt"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

const (
	defaultInviteExpiryDays = 7
	minInviteExpiryDays     = 1
	maxInviteExpiryDays     = 30
)

// SupplierInviteInput names one supplier and the RfqItem ids they're
// being asked to price.
type SupplierInviteInput struct {
	SupplierID     int64
	RfqItemIDs     []int64
	ExpiresInDays  *int
}

// InviteSuppliersInput is the parsed command body for invite_suppliers.
type InviteSuppliersInput struct {
	RfqID     int64
	Suppliers []SupplierInviteInput
}

// InvitedSupplier is the return shape: the created invite plus the
// portal URL built from PublicAppURL, ready to hand or email to the
// supplier.
type InvitedSupplier struct {
	Invite rfq.SupplierInvite
	URL    string
}

// InviteSuppliers is idempotent per (rfq, supplier): any prior active
// invite for the same supplier on this Rfq is cancelled before a fresh
// one is issued, so re-inviting never leaves two live tokens pointing at
// the same supplier (spec §4.4).
func (uc *UseCase) InviteSuppliers(ctx context.Context, in InviteSuppliersInput) ([]InvitedSupplier, error) {
	if len(in.Suppliers) == 0 {
		return nil, apperr.ValidationError{
			EntityType: "Rfq",
			Code:       constant.ErrMissingRequiredFields.Error(),
			Title:      "Suppliers Required",
			Message:    "at least one supplier must be invited",
		}
	}

	var invited []InvitedSupplier

	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		r, err := uc.RfqRepo.Find(ctx, in.RfqID)
		if err != nil {
			return err
		}

		if err := checkAction("Rfq", flowpolicy.StageForRfqStatus(string(r.Status)),
			string(r.Status), flowpolicy.ActionInviteSuppliers); err != nil {
			return err
		}

		existing, err := uc.RfqRepo.FindInvitesByRfq(ctx, in.RfqID)
		if err != nil {
			return err
		}

		now := time.Now()

		links := make([]rfq.ItemSupplier, 0)
		fresh := make([]rfq.SupplierInvite, 0, len(in.Suppliers))

		for _, supplier := range in.Suppliers {
			for _, existingInvite := range existing {
				if existingInvite.SupplierID != supplier.SupplierID {
					continue
				}

				if existingInvite.Status == rfq.InviteStatusCancelled || existingInvite.Status == rfq.InviteStatusExpired {
					continue
				}

				existingInvite.Status = rfq.InviteStatusCancelled

				if _, err := uc.RfqRepo.UpdateInvite(ctx, &existingInvite); err != nil {
					return err
				}
			}

			days := defaultInviteExpiryDays
			if supplier.ExpiresInDays != nil {
				days = *supplier.ExpiresInDays
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

			for _, itemID := range supplier.RfqItemIDs {
				links = append(links, rfq.ItemSupplier{RfqItemID: itemID, SupplierID: supplier.SupplierID})
			}

			fresh = append(fresh, rfq.SupplierInvite{
				RfqID:      in.RfqID,
				SupplierID: supplier.SupplierID,
				Token:      token,
				Status:     rfq.InviteStatusPending,
				ExpiresAt:  now.Add(time.Duration(days) * 24 * time.Hour),
			})
		}

		created, err := uc.RfqRepo.InviteSuppliers(ctx, links, fresh)
		if err != nil {
			return err
		}

		if r.Status == rfq.StatusDraft {
			previous := string(r.Status)
			r.Status = rfq.StatusOpen

			if _, err := uc.RfqRepo.Update(ctx, r); err != nil {
				return err
			}

			if err := uc.appendEvent(ctx, statusevent.EntityRfq, r.ID, strPtr(previous),
				string(rfq.StatusOpen), statusevent.ReasonSupplierInvited); err != nil {
				return err
			}
		}

		invited = make([]InvitedSupplier, 0, len(created))

		for _, inv := range created {
			uc.rememberToken(ctx, inv.Token, time.Until(inv.ExpiresAt))

			invited = append(invited, InvitedSupplier{
				Invite: inv,
				URL:    fmt.Sprintf("%s/fornecedor/convite/%s", uc.PublicAppURL, inv.Token),
			})
		}

		return nil
	})
	if err != nil {
		uc.logger().Errorf("invite suppliers to rfq %d: %v", in.RfqID, err)

		return nil, err
	}

	return invited, nil
}
