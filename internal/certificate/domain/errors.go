package domain

import "github.com/smallbiznis/certihub/pkg/errkind"

var (
	ErrInvalidID          = errkind.New(errkind.InvalidInput, "invalid_id", "id must be a numeric identifier")
	ErrInvalidUser        = errkind.New(errkind.InvalidInput, "invalid_user", "user id is required")
	ErrInvalidDates       = errkind.New(errkind.InvalidInput, "invalid_certificate_dates", "expiry date must not be before issue date")
	ErrReasonRequired     = errkind.New(errkind.InvalidInput, "revocation_reason_required", "a revocation reason is required")
	ErrInvalidNumber      = errkind.New(errkind.InvalidInput, "invalid_certificate_number", "certificate number is required")
	ErrEnrollmentNotDone  = errkind.New(errkind.Forbidden, "enrollment_not_completed", "enrollment must be completed before a certificate is issued")
	ErrCertificateMissing = errkind.New(errkind.NotFound, "certificate_not_found", "certificate not found")
	ErrAlreadyRevoked     = errkind.New(errkind.InvalidState, "certificate_already_revoked", "certificate is already revoked")
	ErrNumberExhausted    = errkind.New(errkind.Conflict, "certificate_number_collision", "could not allocate a unique certificate number")
)
