package validator

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/certihub/pkg/errkind"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest checks struct tags and reports the first failing field as
// an InvalidInput error.
func ValidateRequest(req interface{}) error {
	err := get().Struct(req)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if errors.As(err, &validateErrs) && len(validateErrs) > 0 {
		first := validateErrs[0]
		return errors.Mark(
			errors.WithHintf(errors.Wrap(err, "request validation failed"), "%s failed on %s", first.Field(), first.Tag()),
			errkind.InvalidInput,
		)
	}
	return errors.Mark(errors.Wrap(err, "request validation failed"), errkind.InvalidInput)
}
