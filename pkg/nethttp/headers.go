package nethttp

const (
	headerCorrelationID = "X-Request-Id"
	headerTenantID      = "X-Tenant-Id"
	headerPrincipalRole = "X-Principal-Role"
	headerPrincipalSub  = "X-Principal-Sub"
)
