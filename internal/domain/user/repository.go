package user

import (
	"context"
)

type UserRepository interface {
	GetByID(ctx context.Context, tenantID string, id string) (User, error)

	// ListProfiles returns the directory of every user of a tenant
	ListProfiles(ctx context.Context, tenantID string) (Directory, error)

	// ListTenantIDs returns every tenant that has at least one user
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// EmployeeCodeRepository reads the payroll employee-code master of a tenant.
type EmployeeCodeRepository interface {
	ListCodes(ctx context.Context, tenantID string) (EmployeeCodes, error)
}
