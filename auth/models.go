// Package auth implements token issuance, API key lifecycle, and
// role-based access control for the orchestrator, grounded on the
// original_source llm-orchestrator-auth crate (models.rs, jwt.rs,
// api_keys.rs, rbac.rs, middleware.rs).
package auth

import (
	"errors"
	"fmt"
	"time"
)

// AuthType records which credential scheme authenticated a request.
type AuthType int

const (
	AuthTypeJWT AuthType = iota
	AuthTypeAPIKey
	AuthTypeNone
)

// AuthContext is the authenticated identity attached to a request,
// grounded on models.rs's AuthContext.
type AuthContext struct {
	UserID      string
	Roles       []string
	Permissions []Permission
	AuthType    AuthType
	Credential  string
	ExpiresAt   time.Time
}

// HasPermission reports whether p is present in the context's computed
// permission set.
func (c AuthContext) HasPermission(p Permission) bool {
	for _, have := range c.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// IsExpired reports whether the context's expiry has passed.
func (c AuthContext) IsExpired() bool {
	return time.Now().UTC().After(c.ExpiresAt)
}

// RequirePermission returns ErrInsufficientPermissions if p is absent.
func (c AuthContext) RequirePermission(p Permission) error {
	if c.HasPermission(p) {
		return nil
	}
	return &InsufficientPermissionsError{Required: p, Available: c.Permissions}
}

// Permission enumerates the system's fixed permission set, grounded on
// models.rs's Permission.
type Permission string

const (
	PermissionWorkflowRead    Permission = "workflow_read"
	PermissionWorkflowWrite   Permission = "workflow_write"
	PermissionWorkflowExecute Permission = "workflow_execute"
	PermissionWorkflowDelete  Permission = "workflow_delete"
	PermissionAdminAccess     Permission = "admin_access"
	PermissionExecutionRead   Permission = "execution_read"
	PermissionExecutionCancel Permission = "execution_cancel"
)

// AllPermissions returns every permission in the system.
func AllPermissions() []Permission {
	return []Permission{
		PermissionWorkflowRead,
		PermissionWorkflowWrite,
		PermissionWorkflowExecute,
		PermissionWorkflowDelete,
		PermissionAdminAccess,
		PermissionExecutionRead,
		PermissionExecutionCancel,
	}
}

// PermissionsForRole returns the fixed permission set for one of the
// four predefined roles, or nil for an unrecognized role.
func PermissionsForRole(role string) []Permission {
	switch role {
	case "viewer":
		return []Permission{PermissionWorkflowRead, PermissionExecutionRead}
	case "executor":
		return []Permission{PermissionWorkflowRead, PermissionWorkflowExecute, PermissionExecutionRead}
	case "developer":
		return []Permission{
			PermissionWorkflowRead, PermissionWorkflowWrite, PermissionWorkflowExecute,
			PermissionExecutionRead, PermissionExecutionCancel,
		}
	case "admin":
		return AllPermissions()
	default:
		return nil
	}
}

// ApiKey is the full record created at key-issuance time, including
// the raw key — shown only once to the caller.
type ApiKey struct {
	ID        string
	Key       string
	KeyHash   string
	UserID    string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt *time.Time
	Name      string
}

// ApiKeyInfo is the persisted, raw-key-free view of an ApiKey.
type ApiKeyInfo struct {
	ID         string
	KeyHash    string
	UserID     string
	Scopes     []string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	Name       string
	LastUsedAt *time.Time
}

// RolePolicy names the permissions granted by a role.
type RolePolicy struct {
	Role        string
	Permissions []Permission
	Description string
}

// Claims is the access-token payload, grounded on models.rs's Claims.
type Claims struct {
	Subject   string   `json:"sub"`
	Roles     []string `json:"roles"`
	ExpiresAt int64    `json:"exp"`
	IssuedAt  int64    `json:"iat"`
	Issuer    string   `json:"iss"`
	JTI       string   `json:"jti,omitempty"`
}

// refreshClaims is the minimal-claim refresh-token payload, grounded
// on jwt.rs's private RefreshClaims. Used by JWTManager's
// GenerateRefreshToken/VerifyRefreshToken as the canonical shape for
// the jwt.MapClaims they sign and parse.
type refreshClaims struct {
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
	Issuer    string `json:"iss"`
	JTI       string `json:"jti"`
	TokenType string `json:"token_type"`
}

// Sentinel and structured auth errors, grounded on models.rs's
// AuthError.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrAPIKeyNotFound     = errors.New("auth: api key not found")
	ErrAPIKeyExpired      = errors.New("auth: api key expired")
)

// InvalidTokenError wraps a token-parsing/verification failure.
type InvalidTokenError struct {
	Reason string
	Err    error
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("auth: invalid token: %s", e.Reason)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

// RoleNotFoundError reports a reference to an undeclared role.
type RoleNotFoundError struct {
	Role string
}

func (e *RoleNotFoundError) Error() string { return fmt.Sprintf("auth: role not found: %s", e.Role) }

// InsufficientPermissionsError reports a denied permission check.
type InsufficientPermissionsError struct {
	Required  Permission
	Available []Permission
}

func (e *InsufficientPermissionsError) Error() string {
	return fmt.Sprintf("auth: insufficient permissions: required %s, available %v", e.Required, e.Available)
}
