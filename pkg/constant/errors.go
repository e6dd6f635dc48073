// Package constant is the registry of business error codes for the
// procurement core, mirroring the teacher's common/constant/errors.go
// numeric registry. Codes are prefixed "P" (procurement) so they never
// collide with a consumer's own reserved error-code block.
package constant

import "errors"

var (
	ErrEntityNotFound             = errors.New("P0001")
	ErrValidation                 = errors.New("P0002")
	ErrEntityConflict             = errors.New("P0003")
	ErrDuplicateSupplierInvite    = errors.New("P0004")
	ErrFlowPolicyViolation        = errors.New("P0005")
	ErrInvalidStageTransition     = errors.New("P0006")
	ErrCriticalActionNotConfirmed = errors.New("P0007")
	ErrTenantIDRequired           = errors.New("P0008")
	ErrTenantMismatch             = errors.New("P0009")
	ErrErpManagedReadonly         = errors.New("P0010")
	ErrErpIntegration             = errors.New("P0011")
	ErrErpCircuitOpen             = errors.New("P0012")
	ErrOutboxAlreadyPending       = errors.New("P0013")
	ErrInviteTokenNotFound        = errors.New("P0014")
	ErrInviteTokenExpired         = errors.New("P0015")
	ErrInviteAlreadySubmitted     = errors.New("P0016")
	ErrAwardAlreadyDecided        = errors.New("P0017")
	ErrNoQuotesToAward            = errors.New("P0018")
	ErrPurchaseOrderAlreadyExists = errors.New("P0019")
	ErrInternalServer             = errors.New("P0020")
	ErrBadRequest                 = errors.New("P0021")
	ErrUnauthorized               = errors.New("P0022")
	ErrForbidden                  = errors.New("P0023")
	ErrMissingRequiredFields      = errors.New("P0024")
	ErrInvalidWatermarkScope      = errors.New("P0025")
	ErrItemsRequired              = errors.New("P0026")
	ErrSupplierNotInvitedForItems = errors.New("P0027")
	ErrErpContractInvalid         = errors.New("P0028")
)
