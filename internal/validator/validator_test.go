package validator

import (
	"testing"

	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	CertificationID string `json:"certification_id" validate:"required"`
	Decision        string `json:"decision" validate:"oneof=approve reject"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{CertificationID: "1", Decision: "approve"}))

	err := ValidateRequest(sampleRequest{Decision: "approve"})
	assert.True(t, errkind.Is(err, errkind.InvalidInput))
	assert.Contains(t, errkind.Hint(err), "CertificationID failed on required")

	err = ValidateRequest(sampleRequest{CertificationID: "1", Decision: "maybe"})
	assert.True(t, errkind.Is(err, errkind.InvalidInput))
}
