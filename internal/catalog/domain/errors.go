package domain

import "github.com/smallbiznis/certihub/pkg/errkind"

var (
	ErrInvalidID            = errkind.New(errkind.InvalidInput, "invalid_id", "id must be a numeric identifier")
	ErrInvalidTitle         = errkind.New(errkind.InvalidInput, "invalid_title", "title is required")
	ErrInvalidPrice         = errkind.New(errkind.InvalidInput, "invalid_price", "price must be a non-negative decimal")
	ErrInvalidSequence      = errkind.New(errkind.InvalidInput, "invalid_sequence", "sequence must be positive")
	ErrCertificationMissing = errkind.New(errkind.NotFound, "certification_not_found", "certification not found")
	ErrNotPublished         = errkind.New(errkind.NotFound, "certification_not_published", "certification is not available")
	ErrSlugTaken            = errkind.New(errkind.Conflict, "slug_taken", "a certification with this title already exists")
	ErrSequenceTaken        = errkind.New(errkind.Conflict, "sequence_taken", "module sequence already used")
	ErrAlreadyPublished     = errkind.New(errkind.InvalidState, "already_published", "certification is already published")
	ErrLockedByEnrollment   = errkind.New(errkind.InvalidState, "certification_locked", "price and status are immutable once learners enrolled")
)
