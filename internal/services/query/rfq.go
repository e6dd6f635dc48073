package query

import (
	"context"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
	"github.com/Lucasschwertz/procurement-core/internal/domain/rfq"
	"github.com/Lucasschwertz/procurement-core/internal/domain/statusevent"
)

// RfqView bundles an Rfq with its items, invites, quotes and the
// pipeline presentation.
type RfqView struct {
	Rfq     rfq.Rfq
	Items   []rfq.Item
	Invites []rfq.SupplierInvite
	Quotes  []rfq.Quote
	Steps   []flowpolicy.ProcessStep
}

// GetRfq resolves a single Rfq with its items, invites, and quotes.
func (uc *UseCase) GetRfq(ctx context.Context, id int64) (*RfqView, error) {
	r, err := uc.RfqRepo.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := uc.RfqRepo.FindItems(ctx, id)
	if err != nil {
		return nil, err
	}

	invites, err := uc.RfqRepo.FindInvitesByRfq(ctx, id)
	if err != nil {
		return nil, err
	}

	quotes, err := uc.RfqRepo.FindQuotesByRfq(ctx, id)
	if err != nil {
		return nil, err
	}

	stage := flowpolicy.StageForRfqStatus(string(r.Status))

	return &RfqView{Rfq: *r, Items: items, Invites: invites, Quotes: quotes, Steps: flowpolicy.ProcessSteps(stage)}, nil
}

// SupplierInviteView is the public-portal view a supplier sees: the
// invite, the Rfq items they were invited to price, and any quote
// they've already submitted.
type SupplierInviteView struct {
	Invite rfq.SupplierInvite
	Items  []rfq.Item
	Quote  *rfq.Quote
}

// GetSupplierInviteByToken is the read side of the supplier-portal
// landing page — it performs no lazy expiry mutation, unlike
// command.OpenSupplierInvite, since a GET must never have side effects.
func (uc *UseCase) GetSupplierInviteByToken(ctx context.Context, token string) (*SupplierInviteView, error) {
	inv, err := uc.RfqRepo.FindInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	invitedIDs, err := uc.RfqRepo.FindInvitedItemIDs(ctx, inv.RfqID, inv.SupplierID)
	if err != nil {
		return nil, err
	}

	allItems, err := uc.RfqRepo.FindItems(ctx, inv.RfqID)
	if err != nil {
		return nil, err
	}

	invitedSet := make(map[int64]bool, len(invitedIDs))
	for _, id := range invitedIDs {
		invitedSet[id] = true
	}

	items := make([]rfq.Item, 0, len(invitedIDs))

	for _, item := range allItems {
		if invitedSet[item.ID] {
			items = append(items, item)
		}
	}

	view := &SupplierInviteView{Invite: *inv, Items: items}

	quote, err := uc.RfqRepo.FindQuoteBySupplier(ctx, inv.RfqID, inv.SupplierID)
	if err == nil {
		view.Quote = quote
	}

	return view, nil
}

// RfqHistory returns the append-only StatusEvent trail for an Rfq.
func (uc *UseCase) RfqHistory(ctx context.Context, id int64) ([]statusevent.Event, error) {
	return uc.statusHistory(ctx, statusevent.EntityRfq, id)
}
