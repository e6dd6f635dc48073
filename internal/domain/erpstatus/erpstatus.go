// Package erpstatus is the small, fixed vocabulary a PurchaseOrder's ERP
// integration state is classified into before it is ever surfaced to an
// API client (spec §7): no stack trace, internal identifier, or raw ERP
// error body reaches PurchaseOrder.ErpLastError — only one of these.
package erpstatus

// Status is one of the fixed classifications. Build one of the named
// constants below; never construct a Status from gateway error text.
type Status string

const (
	// Rejeitado marks a push the ERP (or local envelope validation)
	// definitively refused — the worker will not retry.
	Rejeitado Status = "rejeitado"
	// ReenvioNecessario marks a push currently cycling through retry.
	ReenvioNecessario Status = "reenvio_necessario"
	// Enviado marks a push the transport accepted but the ERP has not
	// yet confirmed.
	Enviado Status = "enviado"
	// Aceito marks a push the ERP has confirmed.
	Aceito Status = "aceito"
	// NaoEnviado marks a PurchaseOrder never queued for push.
	NaoEnviado Status = "nao_enviado"
)

// Key returns the raw classification value.
func (s Status) Key() string {
	return string(s)
}

// messages maps each Status to the fixed, translation-ready string
// PurchaseOrder.ErpLastError is set to — never the gateway's own text.
var messages = map[Status]string{
	Rejeitado:         "erp_rejected",
	ReenvioNecessario: "erp_retry_in_progress",
	Enviado:           "erp_sent_awaiting_confirmation",
	Aceito:            "erp_accepted",
	NaoEnviado:        "erp_not_sent",
}

// Message returns the fixed friendly string for s. An unrecognized Status
// falls back to Rejeitado's message rather than ever echoing its own
// value back unclassified.
func (s Status) Message() string {
	if m, ok := messages[s]; ok {
		return m
	}

	return messages[Rejeitado]
}
