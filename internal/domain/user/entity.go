package user

import "time"

type Role string

const (
	RoleEmployee   Role = "employee"    // Clocks in and out, sees own records
	RoleAdmin      Role = "admin"       // Edits records, reads summaries of the tenant
	RoleSuperAdmin Role = "super_admin" // Admin of the whole tenant
)

// UnknownDisplayName is shown for records whose user is missing from the directory.
const UnknownDisplayName = "不明"

type User struct {
	ID          string
	TenantID    string
	Email       string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin checks if the role may manage other users' records
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Profile is one row of the user directory used by reports.
type Profile struct {
	UserID      string
	DisplayName string
	Email       string
}

// Directory maps user IDs to profiles.
type Directory map[string]Profile

// Lookup returns the profile of userID, or an unknown placeholder.
func (d Directory) Lookup(userID string) Profile {
	if p, ok := d[userID]; ok {
		if p.DisplayName == "" {
			p.DisplayName = UnknownDisplayName
		}
		return p
	}
	return Profile{UserID: userID, DisplayName: UnknownDisplayName}
}

// EmployeeCodes maps an email address or a display name to a payroll employee code.
type EmployeeCodes map[string]string
