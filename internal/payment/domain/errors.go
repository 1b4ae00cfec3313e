package domain

import "github.com/smallbiznis/certihub/pkg/errkind"

var (
	ErrInvalidID          = errkind.New(errkind.InvalidInput, "invalid_id", "id must be a numeric identifier")
	ErrInvalidUser        = errkind.New(errkind.InvalidInput, "invalid_user", "user id is required")
	ErrInvalidInvoice     = errkind.New(errkind.InvalidInput, "invalid_invoice_id", "invoice id is required")
	ErrInvalidState       = errkind.New(errkind.InvalidInput, "invalid_payment_state", "state must be pending, complete or failed")
	ErrMissingMetadata    = errkind.New(errkind.InvalidInput, "missing_payment_metadata", "notification must carry userId and certificationId")
	ErrInvalidPayload     = errkind.New(errkind.InvalidInput, "invalid_payload", "payload is not valid JSON")
	ErrInvalidSignature   = errkind.New(errkind.Forbidden, "invalid_signature", "webhook signature rejected")
	ErrProviderNotFound   = errkind.New(errkind.NotFound, "payment_provider_not_found", "unknown payment provider")
	ErrTransactionMissing = errkind.New(errkind.NotFound, "transaction_not_found", "transaction not found")
	ErrNotRefundable      = errkind.New(errkind.InvalidState, "transaction_not_refundable", "only completed transactions can be refunded")
	ErrSyncUnsupported    = errkind.New(errkind.InvalidState, "sync_unsupported", "provider does not support status checks")
	ErrEventIgnored       = errkind.New(errkind.InvalidInput, "event_ignored", "")
)
