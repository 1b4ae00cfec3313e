package domain

import "github.com/smallbiznis/certihub/pkg/errkind"

var (
	ErrInvalidID              = errkind.New(errkind.InvalidInput, "invalid_id", "id must be a numeric identifier")
	ErrInvalidUser            = errkind.New(errkind.InvalidInput, "invalid_user", "user id is required")
	ErrInvalidMode            = errkind.New(errkind.InvalidInput, "invalid_authorization_mode", "unknown authorization mode")
	ErrNoApprovedApplication  = errkind.New(errkind.Forbidden, "no_approved_application", "no approved application")
	ErrActiveEnrollmentExists = errkind.New(errkind.Conflict, "active_enrollment_exists", "one active enrollment at a time")
	ErrAlreadyEnrolled        = errkind.New(errkind.Conflict, "already_enrolled", "already enrolled")
	ErrEnrollmentMissing      = errkind.New(errkind.NotFound, "enrollment_not_found", "enrollment not found")
	ErrProgressMissing        = errkind.New(errkind.NotFound, "module_progress_not_found", "module is not part of an enrollment of this user")
	ErrEnrollmentNotActive    = errkind.New(errkind.InvalidState, "enrollment_not_active", "enrollment is not active")
)

// WarningModulesPending is surfaced when module progress rows could not be
// created after the enrollment committed; the backfill job repairs them.
const WarningModulesPending = "module progress provisioning incomplete; it will be retried automatically"
