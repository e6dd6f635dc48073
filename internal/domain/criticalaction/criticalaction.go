// Package criticalaction declares which flow-policy actions require
// explicit user confirmation and validates that confirmation before a
// domain service is allowed to mutate state.
package criticalaction

import (
	"strings"

	"github.com/Lucasschwertz/procurement-core/internal/domain/flowpolicy"
)

// Detail carries the presentation keys a client needs to render a
// confirmation prompt for a critical action.
type Detail struct {
	ConfirmMessageKey string
	ImpactTextKey     string
}

// critical is the declarative set of actions that require confirmation,
// covering cancellations, award, PO creation from award, ERP push, and
// supplier proposal deletion.
var critical = map[flowpolicy.Action]Detail{
	flowpolicy.ActionCancelRequest: {
		ConfirmMessageKey: "confirm.cancel_request",
		ImpactTextKey:     "impact.cancel_request",
	},
	flowpolicy.ActionCancelRfq: {
		ConfirmMessageKey: "confirm.cancel_rfq",
		ImpactTextKey:     "impact.cancel_rfq",
	},
	flowpolicy.ActionAwardRfq: {
		ConfirmMessageKey: "confirm.award_rfq",
		ImpactTextKey:     "impact.award_rfq",
	},
	flowpolicy.ActionCancelAward: {
		ConfirmMessageKey: "confirm.cancel_award",
		ImpactTextKey:     "impact.cancel_award",
	},
	flowpolicy.ActionCreatePoFromAward: {
		ConfirmMessageKey: "confirm.create_po_from_award",
		ImpactTextKey:     "impact.create_po_from_award",
	},
	flowpolicy.ActionCancelPo: {
		ConfirmMessageKey: "confirm.cancel_order",
		ImpactTextKey:     "impact.cancel_order",
	},
	flowpolicy.ActionPushToErp: {
		ConfirmMessageKey: "confirm.push_to_erp",
		ImpactTextKey:     "impact.push_to_erp",
	},
	flowpolicy.ActionDeleteProposal: {
		ConfirmMessageKey: "confirm.delete_proposal",
		ImpactTextKey:     "impact.delete_proposal",
	},
}

// IsCritical reports whether action requires explicit confirmation.
func IsCritical(action flowpolicy.Action) bool {
	_, ok := critical[action]
	return ok
}

// DetailFor returns the presentation keys for a critical action. The
// second return value is false when action is not critical.
func DetailFor(action flowpolicy.Action) (Detail, bool) {
	d, ok := critical[action]
	return d, ok
}

// Confirmation is what a command carries about the caller's confirmation
// intent, gathered from body, query, or header by the HTTP adapter.
type Confirmation struct {
	Flag  bool
	Token string
}

// Satisfied reports whether c amounts to an explicit confirmation: either
// an explicit true flag, or a non-empty token.
func (c Confirmation) Satisfied() bool {
	return c.Flag || strings.TrimSpace(c.Token) != ""
}

// Mode describes how a satisfied confirmation was given, for the audit
// event emitted alongside every successful critical action.
func (c Confirmation) Mode() string {
	switch {
	case strings.TrimSpace(c.Token) != "":
		return "token"
	case c.Flag:
		return "flag"
	default:
		return "none"
	}
}

// Require checks whether action needs confirmation and, if so, whether
// confirmation was given. It returns true when the action may proceed:
// either it isn't critical, or it is and confirmation was satisfied.
func Require(action flowpolicy.Action, confirmation Confirmation) bool {
	if !IsCritical(action) {
		return true
	}

	return confirmation.Satisfied()
}
