package errkind

import (
	"github.com/cockroachdb/errors"
)

// Kinds classify every error that leaves a service. Handlers and webhook
// retriers only look at the kind, never at the message.
var (
	InvalidInput    = errors.New("invalid_input")
	Forbidden       = errors.New("forbidden")
	Conflict        = errors.New("conflict")
	InvalidState    = errors.New("invalid_state")
	NotFound        = errors.New("not_found")
	UpstreamFailure = errors.New("upstream_failure")
)

var kinds = []error{
	InvalidInput,
	Forbidden,
	Conflict,
	InvalidState,
	NotFound,
	UpstreamFailure,
}

// New builds a sentinel error carrying a machine code, a user facing hint and
// a kind mark. The kind mark must not be the outermost layer: a sentinel's
// own mark is taken from its outer layer, and two sentinels of one kind would
// otherwise compare equal.
func New(kind error, code string, hint string) error {
	err := errors.Mark(errors.New(code), kind)
	if hint == "" {
		return errors.WithDetail(err, code)
	}
	return errors.WithHint(err, hint)
}

// Upstream marks a storage or gateway failure as retryable.
func Upstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), UpstreamFailure)
}

// Is reports whether err carries the given kind (or is the given sentinel).
func Is(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the kind marked on err, or nil for unclassified errors.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code returns the kind name used in API payloads and logs.
func Code(err error) string {
	kind := KindOf(err)
	if kind == nil {
		return "internal_error"
	}
	return kind.Error()
}

// Hint returns the user facing hints attached to err.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	return errors.FlattenHints(err)
}

// Retryable reports whether the caller may safely retry the operation.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	kind := KindOf(err)
	return kind == nil || kind == UpstreamFailure
}
