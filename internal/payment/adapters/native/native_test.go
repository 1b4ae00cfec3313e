package native

import (
	"context"
	"net/http"
	"testing"

	"github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"invoiceId":"INV-1","amount":232,"currency":"idr","email":"a@b.co","state":"complete","metadata":{"certificationId":"42","userId":"user-1"}}`

func TestVerify(t *testing.T) {
	adapter := New("s3cret")
	headers := http.Header{}

	assert.ErrorIs(t, adapter.Verify(context.Background(), []byte(payload), headers), domain.ErrInvalidSignature)

	headers.Set(SignatureHeader, "deadbeef")
	assert.ErrorIs(t, adapter.Verify(context.Background(), []byte(payload), headers), domain.ErrInvalidSignature)

	headers.Set(SignatureHeader, Sign("s3cret", []byte(payload)))
	assert.NoError(t, adapter.Verify(context.Background(), []byte(payload), headers))

	headers.Set(SignatureHeader, "sha256="+Sign("s3cret", []byte(payload)))
	assert.NoError(t, adapter.Verify(context.Background(), []byte(payload), headers))
}

func TestVerifyWithoutSecret(t *testing.T) {
	adapter := New("")
	headers := http.Header{}
	headers.Set(SignatureHeader, Sign("", []byte(payload)))

	assert.ErrorIs(t, adapter.Verify(context.Background(), []byte(payload), headers), domain.ErrInvalidSignature)
}

func TestParse(t *testing.T) {
	n, err := New("s3cret").Parse(context.Background(), []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, Provider, n.Provider)
	assert.Equal(t, "INV-1", n.InvoiceID)
	assert.Equal(t, "232", n.Amount.String())
	assert.Equal(t, "IDR", n.Currency)
	assert.Equal(t, domain.StateComplete, n.State)
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, "42", n.CertificationID)
	assert.Len(t, n.EventID, 64)

	again, err := New("s3cret").Parse(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, n.EventID, again.EventID)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := New("s3cret").Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = New("s3cret").Parse(context.Background(), []byte(`{"state":"complete"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)
}
