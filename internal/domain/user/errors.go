package user

import "errors"

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrAdminPrivilegeRequired  = errors.New("admin privilege required")
	ErrTenantIDRequired        = errors.New("tenant ID is required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
