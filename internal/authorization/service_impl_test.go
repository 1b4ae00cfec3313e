package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) Service {
	t.Helper()

	enforcer, err := NewEnforcerWithAdapter(nil)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoutes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		role, path, method string
		allowed            bool
	}{
		{RoleAnonymous, "/health", "GET", true},
		{RoleAnonymous, "/v1/billing/preview", "GET", true},
		{RoleAnonymous, "/v1/enrollments", "POST", false},
		{RoleLearner, "/v1/enrollments", "POST", true},
		{RoleLearner, "/v1/enrollments/123", "GET", true},
		{RoleLearner, "/v1/enrollments/123/drop", "POST", false},
		{RoleLearner, "/v1/certificates/verify/CERT-1", "GET", true},
		{RoleLearner, "/v1/certificates", "POST", false},
		{RoleLearner, "/v1/applications/9/decision", "POST", false},
		{RoleAdmin, "/v1/applications/9/decision", "POST", true},
		{RoleAdmin, "/v1/enrollments/123/drop", "post", true},
		{RoleAdmin, "/v1/enrollments", "POST", true},
		{RoleAnonymous, "/v1/certifications", "GET", true},
		{RoleLearner, "/v1/certifications", "POST", false},
		{RoleAdmin, "/v1/certifications", "POST", true},
		{RoleAdmin, "/v1/certifications/5", "PATCH", true},
		{RoleAdmin, "/v1/certifications/5", "DELETE", false},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.role, tc.path, tc.method)
		if tc.allowed {
			assert.NoError(t, err, "%s %s %s", tc.role, tc.method, tc.path)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s %s", tc.role, tc.method, tc.path)
		}
	}
}

func TestAuthorizeUnknownRole(t *testing.T) {
	svc := newService(t)

	err := svc.Authorize(context.Background(), "root", "/health", "GET")
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.True(t, errkind.Is(err, errkind.Forbidden))
}

func TestSeedPoliciesIsIdempotent(t *testing.T) {
	enforcer, err := NewEnforcerWithAdapter(nil)
	require.NoError(t, err)

	before, err := enforcer.GetPolicy()
	require.NoError(t, err)
	require.NoError(t, seedPolicies(enforcer))
	after, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}
