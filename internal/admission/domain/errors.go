package domain

import "github.com/smallbiznis/certihub/pkg/errkind"

var (
	ErrInvalidID          = errkind.New(errkind.InvalidInput, "invalid_id", "id must be a numeric identifier")
	ErrInvalidUser        = errkind.New(errkind.InvalidInput, "invalid_user", "user id is required")
	ErrInvalidDecision    = errkind.New(errkind.InvalidInput, "invalid_decision", "decision must be approve or reject")
	ErrInvalidStatus      = errkind.New(errkind.InvalidInput, "invalid_status", "status must be pending, approved or rejected")
	ErrApplicationMissing = errkind.New(errkind.NotFound, "application_not_found", "application not found")
	ErrPendingExists      = errkind.New(errkind.Conflict, "application_pending", "an application for this certification is already pending")
	ErrAlreadyDecided     = errkind.New(errkind.InvalidState, "application_decided", "application was already decided")
)
