package adapters

import (
	"testing"

	"github.com/smallbiznis/certihub/internal/payment/adapters/midtrans"
	"github.com/smallbiznis/certihub/internal/payment/adapters/native"
	"github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry(native.New("s"), midtrans.NewWithClient("k", nil), nil)

	assert.True(t, registry.ProviderExists(" Native "))
	assert.False(t, registry.ProviderExists("stripe"))

	_, err := registry.Adapter("stripe")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	_, err = registry.StatusChecker("native")
	assert.ErrorIs(t, err, domain.ErrSyncUnsupported)

	checker, err := registry.StatusChecker("midtrans")
	require.NoError(t, err)
	assert.NotNil(t, checker)

	var empty *Registry
	assert.False(t, empty.ProviderExists("native"))
}
