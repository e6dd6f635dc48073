// Package flowpolicy is the declarative stage/status/action table that
// decides which actions are legal for a purchase request, RFQ, award, or
// purchase order at any point in its lifecycle. It performs no I/O and no
// logging — it is a pure lookup, the single source of truth C4 consults
// before mutating any aggregate.
package flowpolicy

// Stage identifies which part of the procurement pipeline an aggregate is
// currently in.
type Stage string

const (
	StageSolicitacao  Stage = "solicitacao"
	StageCotacao      Stage = "cotacao"
	StageDecisao      Stage = "decisao"
	StageOrdemCompra  Stage = "ordem_compra"
	StageFornecedor   Stage = "fornecedor"
)

// Action is a key identifying a state-changing operation a command may
// request against an aggregate.
type Action string

const (
	ActionCreateRfq            Action = "create_rfq"
	ActionInviteSuppliers      Action = "invite_suppliers"
	ActionCancelRequest        Action = "cancel_request"
	ActionUpdateRequest        Action = "update_request"
	ActionViewRequest          Action = "view_request"
	ActionOpenInvite           Action = "open_invite"
	ActionSubmitQuote          Action = "submit_quote"
	ActionSaveQuote            Action = "save_quote"
	ActionDeleteProposal       Action = "delete_proposal"
	ActionResendInvite         Action = "resend_invite"
	ActionCloseRfq             Action = "close_rfq"
	ActionCancelRfq            Action = "cancel_rfq"
	ActionAwardRfq             Action = "award_rfq"
	ActionCancelAward          Action = "cancel_award"
	ActionCreatePoFromAward    Action = "create_po_from_award"
	ActionApprovePo            Action = "approve_order"
	ActionPushToErp            Action = "push_to_erp"
	ActionCancelPo             Action = "cancel_order"
	ActionTrackReceipt         Action = "track_receipt"
	ActionViewOrder            Action = "view_order"
	ActionViewHistory          Action = "view_history"
)

// Policy is the result of looking up a (stage, status) pair.
type Policy struct {
	AllowedActions []Action
	PrimaryAction  Action
}

// ActionAllowed reports whether action is a member of AllowedActions.
func (p Policy) ActionAllowed(action Action) bool {
	for _, a := range p.AllowedActions {
		if a == action {
			return true
		}
	}

	return false
}

type key struct {
	stage  Stage
	status string
}

// table is the single source of truth. Every declared status for every
// aggregate must appear here; an unknown (stage, status) pair returns the
// zero Policy (deny-all, no primary) via AllowedActionsFor/PrimaryActionFor.
var table = map[key]Policy{
	// PurchaseRequest statuses.
	{StageSolicitacao, "pending_rfq"}: {
		AllowedActions: []Action{ActionCreateRfq, ActionUpdateRequest, ActionCancelRequest, ActionViewRequest},
		PrimaryAction:  ActionCreateRfq,
	},
	{StageSolicitacao, "in_rfq"}: {
		AllowedActions: []Action{ActionViewRequest, ActionViewHistory},
		PrimaryAction:  ActionViewRequest,
	},
	{StageSolicitacao, "awarded"}: {
		AllowedActions: []Action{ActionViewRequest, ActionViewHistory},
		PrimaryAction:  ActionViewRequest,
	},
	{StageSolicitacao, "ordered"}: {
		AllowedActions: []Action{ActionTrackReceipt, ActionViewHistory},
		PrimaryAction:  ActionTrackReceipt,
	},
	{StageSolicitacao, "partially_received"}: {
		AllowedActions: []Action{ActionTrackReceipt, ActionViewHistory},
		PrimaryAction:  ActionTrackReceipt,
	},
	{StageSolicitacao, "received"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},
	{StageSolicitacao, "cancelled"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},

	// Rfq statuses.
	{StageCotacao, "draft"}: {
		AllowedActions: []Action{ActionInviteSuppliers, ActionCancelRfq, ActionViewRequest},
		PrimaryAction:  ActionInviteSuppliers,
	},
	{StageCotacao, "open"}: {
		AllowedActions: []Action{ActionInviteSuppliers, ActionCancelRfq, ActionViewRequest},
		PrimaryAction:  ActionInviteSuppliers,
	},
	{StageCotacao, "collecting_quotes"}: {
		AllowedActions: []Action{ActionCloseRfq, ActionAwardRfq, ActionCancelRfq, ActionViewRequest},
		PrimaryAction:  ActionAwardRfq,
	},
	{StageCotacao, "closed"}: {
		AllowedActions: []Action{ActionAwardRfq, ActionCancelRfq, ActionViewRequest},
		PrimaryAction:  ActionAwardRfq,
	},
	{StageCotacao, "awarded"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},
	{StageCotacao, "cancelled"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},

	// Award statuses.
	{StageDecisao, "awarded"}: {
		AllowedActions: []Action{ActionCreatePoFromAward, ActionCancelAward, ActionViewHistory},
		PrimaryAction:  ActionCreatePoFromAward,
	},
	{StageDecisao, "converted_to_po"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},
	{StageDecisao, "cancelled"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},

	// PurchaseOrder statuses.
	{StageOrdemCompra, "draft"}: {
		AllowedActions: []Action{ActionApprovePo, ActionCancelPo, ActionViewOrder},
		PrimaryAction:  ActionApprovePo,
	},
	{StageOrdemCompra, "approved"}: {
		AllowedActions: []Action{ActionPushToErp, ActionCancelPo, ActionViewOrder},
		PrimaryAction:  ActionPushToErp,
	},
	{StageOrdemCompra, "sent_to_erp"}: {
		AllowedActions: []Action{ActionViewOrder, ActionViewHistory},
		PrimaryAction:  ActionViewOrder,
	},
	{StageOrdemCompra, "erp_accepted"}: {
		AllowedActions: []Action{ActionViewOrder, ActionTrackReceipt, ActionViewHistory},
		PrimaryAction:  ActionTrackReceipt,
	},
	{StageOrdemCompra, "partially_received"}: {
		AllowedActions: []Action{ActionTrackReceipt, ActionViewHistory},
		PrimaryAction:  ActionTrackReceipt,
	},
	{StageOrdemCompra, "received"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},
	{StageOrdemCompra, "cancelled"}: {
		AllowedActions: []Action{ActionViewHistory},
		PrimaryAction:  ActionViewHistory,
	},
	{StageOrdemCompra, "erp_error"}: {
		AllowedActions: []Action{ActionPushToErp, ActionViewOrder, ActionViewHistory},
		PrimaryAction:  ActionPushToErp,
	},

	// RfqSupplierInvite statuses.
	{StageFornecedor, "pending"}: {
		AllowedActions: []Action{ActionOpenInvite, ActionResendInvite},
		PrimaryAction:  ActionOpenInvite,
	},
	{StageFornecedor, "opened"}: {
		AllowedActions: []Action{ActionSubmitQuote, ActionResendInvite},
		PrimaryAction:  ActionSubmitQuote,
	},
	{StageFornecedor, "submitted"}: {
		AllowedActions: []Action{ActionDeleteProposal, ActionSaveQuote},
		PrimaryAction:  ActionSaveQuote,
	},
	{StageFornecedor, "expired"}: {
		AllowedActions: []Action{ActionResendInvite},
		PrimaryAction:  ActionResendInvite,
	},
	{StageFornecedor, "cancelled"}: {
		AllowedActions: nil,
		PrimaryAction:  "",
	},
}

// PolicyFor returns the Policy for a (stage, status) pair, or the zero
// Policy (deny-all, no primary) when the pair is unknown.
func PolicyFor(stage Stage, status string) Policy {
	return table[key{stage, status}]
}

// AllowedActions returns the ordered list of legal actions for (stage,
// status).
func AllowedActions(stage Stage, status string) []Action {
	return PolicyFor(stage, status).AllowedActions
}

// PrimaryAction returns the suggested next action for (stage, status), or
// the empty Action when none applies.
func PrimaryAction(stage Stage, status string) Action {
	return PolicyFor(stage, status).PrimaryAction
}

// ActionAllowed reports whether action is legal for (stage, status).
func ActionAllowed(stage Stage, status string, action Action) bool {
	return PolicyFor(stage, status).ActionAllowed(action)
}

// ProcessStepState is the presentation state of a single stage within the
// overall pipeline, as returned by ProcessSteps.
type ProcessStepState string

const (
	StepCompleted ProcessStepState = "completed"
	StepCurrent   ProcessStepState = "current"
	StepFuture    ProcessStepState = "future"
)

// ProcessStep pairs a Stage with its presentation state relative to
// currentStage.
type ProcessStep struct {
	Stage Stage
	State ProcessStepState
}

// pipeline is the canonical ordering of stages, used only to derive
// ProcessSteps; it carries no status information.
var pipeline = []Stage{StageSolicitacao, StageCotacao, StageDecisao, StageOrdemCompra}

// ProcessSteps returns every pipeline stage tagged completed/current/future
// relative to currentStage. StageFornecedor is a parallel track (suppliers
// interacting via invite tokens) and is never part of this sequence.
func ProcessSteps(currentStage Stage) []ProcessStep {
	steps := make([]ProcessStep, 0, len(pipeline))

	seenCurrent := false

	for _, s := range pipeline {
		switch {
		case s == currentStage:
			steps = append(steps, ProcessStep{Stage: s, State: StepCurrent})
			seenCurrent = true
		case !seenCurrent:
			steps = append(steps, ProcessStep{Stage: s, State: StepCompleted})
		default:
			steps = append(steps, ProcessStep{Stage: s, State: StepFuture})
		}
	}

	return steps
}

// StageForPurchaseRequestStatus maps a PurchaseRequest status to its stage.
// All declared statuses live in StageSolicitacao.
func StageForPurchaseRequestStatus(string) Stage { return StageSolicitacao }

// StageForRfqStatus maps an Rfq status to its stage.
func StageForRfqStatus(string) Stage { return StageCotacao }

// StageForAwardStatus maps an Award status to its stage.
func StageForAwardStatus(string) Stage { return StageDecisao }

// StageForPurchaseOrderStatus maps a PurchaseOrder status to its stage.
func StageForPurchaseOrderStatus(string) Stage { return StageOrdemCompra }

// StageForInviteStatus maps an RfqSupplierInvite status to its stage.
func StageForInviteStatus(string) Stage { return StageFornecedor }
