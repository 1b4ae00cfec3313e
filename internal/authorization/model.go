package authorization

// modelText is an RBAC model over request paths. Roles inherit through g,
// paths use keyMatch2 patterns and methods are regular expressions.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

const (
	RoleAnonymous = "anonymous"
	RoleLearner   = "learner"
	RoleAdmin     = "admin"
)

func subject(role string) string {
	return "role:" + role
}

var roleLinks = [][]string{
	{subject(RoleLearner), subject(RoleAnonymous)},
	{subject(RoleAdmin), subject(RoleLearner)},
}

var policies = [][]string{
	{subject(RoleAnonymous), "/health", "^GET$"},
	{subject(RoleAnonymous), "/metrics", "^GET$"},
	{subject(RoleAnonymous), "/webhooks/payments/:provider", "^POST$"},
	{subject(RoleAnonymous), "/v1/billing/preview", "^GET$"},
	{subject(RoleAnonymous), "/v1/certificates/verify/:number", "^GET$"},
	{subject(RoleAnonymous), "/v1/certifications", "^GET$"},
	{subject(RoleAnonymous), "/v1/certifications/:id", "^GET$"},
	{subject(RoleAnonymous), "/v1/certifications/:id/modules", "^GET$"},

	{subject(RoleLearner), "/v1/applications", "^(GET|POST)$"},
	{subject(RoleLearner), "/v1/applications/:id", "^GET$"},
	{subject(RoleLearner), "/v1/enrollments", "^(GET|POST)$"},
	{subject(RoleLearner), "/v1/enrollments/:id", "^GET$"},
	{subject(RoleLearner), "/v1/enrollments/:id/modules", "^GET$"},
	{subject(RoleLearner), "/v1/modules/:id/complete", "^POST$"},
	{subject(RoleLearner), "/v1/payments", "^(GET|POST)$"},
	{subject(RoleLearner), "/v1/payments/:invoice_id", "^GET$"},
	{subject(RoleLearner), "/v1/certificates", "^GET$"},
	{subject(RoleLearner), "/v1/certificates/:id", "^GET$"},

	{subject(RoleAdmin), "/v1/applications/:id/decision", "^POST$"},
	{subject(RoleAdmin), "/v1/enrollments/:id/drop", "^POST$"},
	{subject(RoleAdmin), "/v1/enrollments/backfill", "^POST$"},
	{subject(RoleAdmin), "/v1/payments/:invoice_id/refund", "^POST$"},
	{subject(RoleAdmin), "/v1/payments/:invoice_id/sync", "^POST$"},
	{subject(RoleAdmin), "/v1/certificates", "^POST$"},
	{subject(RoleAdmin), "/v1/certificates/:id/revoke", "^POST$"},
	{subject(RoleAdmin), "/v1/certifications", "^POST$"},
	{subject(RoleAdmin), "/v1/certifications/:id", "^PATCH$"},
	{subject(RoleAdmin), "/v1/certifications/:id/publish", "^POST$"},
	{subject(RoleAdmin), "/v1/certifications/:id/modules", "^POST$"},
	{subject(RoleAdmin), "/v1/audit-logs", "^GET$"},
}
