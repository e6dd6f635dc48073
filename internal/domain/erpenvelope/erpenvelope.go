// Package erpenvelope is the canonical, versioned Purchase Order payload
// carried through the outbox from enqueue to push (spec §6.2). Both C5
// (snapshot at enqueue) and C7/C9 (validate before push) share this type
// so the wire contract is defined exactly once.
package erpenvelope

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Lucasschwertz/procurement-core/internal/domain/purchaseorder"
)

// SchemaName and SchemaVersion are the only values this module ever
// stamps or accepts; any other schema_version is a definitive failure.
const (
	SchemaName    = "erp.purchase_order"
	SchemaVersion = 1
)

// Line is one priced line within the envelope.
type Line struct {
	LineNo      int              `json:"line_no"`
	ProductCode *string          `json:"product_code,omitempty"`
	Description *string          `json:"description,omitempty"`
	Quantity    float64          `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	TotalPrice  *decimal.Decimal `json:"total_price,omitempty"`
}

// Envelope is the self-describing snapshot shipped to the ERP.
type Envelope struct {
	SchemaName    string          `json:"schema_name"`
	SchemaVersion int             `json:"schema_version"`
	WorkspaceID   uuid.UUID       `json:"workspace_id"`
	ExternalRef   string          `json:"external_ref"`
	Number        string          `json:"number,omitempty"`
	SupplierName  string          `json:"supplier_name"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Lines         []Line          `json:"lines"`
}

// Build snapshots po and its lines into the canonical envelope. Called
// once, at enqueue time (spec §4.5: "the worker must not reload the PO
// from the database between enqueue and push").
func Build(po purchaseorder.PurchaseOrder, lines []purchaseorder.Line) Envelope {
	external := po.ExternalID
	ref := po.Number

	if external != nil && *external != "" {
		ref = *external
	}

	out := make([]Line, 0, len(lines))

	for _, l := range lines {
		out = append(out, Line{
			LineNo:      l.LineNo,
			ProductCode: l.ProductCode,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.TotalPrice,
		})
	}

	currency := po.Currency
	if currency == "" {
		currency = "BRL"
	}

	return Envelope{
		SchemaName:    SchemaName,
		SchemaVersion: SchemaVersion,
		WorkspaceID:   po.TenantID,
		ExternalRef:   ref,
		Number:        po.Number,
		SupplierName:  po.SupplierName,
		Currency:      currency,
		TotalAmount:   po.TotalAmount,
		Lines:         out,
	}
}

// ValidationError names which contract check failed, letting C7
// distinguish "erp_contract_invalid" dead-letters from other definitive
// rejections.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// Validate rejects an envelope with no lines, a missing supplier name, or
// an unrecognized schema, per spec §6.2.
func (e Envelope) Validate() error {
	if e.SchemaName != SchemaName {
		return ValidationError{Reason: "unknown schema_name"}
	}

	if e.SchemaVersion != SchemaVersion {
		return ValidationError{Reason: "unknown schema_version"}
	}

	if e.SupplierName == "" {
		return ValidationError{Reason: "missing supplier_name"}
	}

	if len(e.Lines) == 0 {
		return ValidationError{Reason: "lines must not be empty"}
	}

	for _, l := range e.Lines {
		if l.Quantity <= 0 {
			return ValidationError{Reason: "line quantity must be positive"}
		}
	}

	return nil
}
