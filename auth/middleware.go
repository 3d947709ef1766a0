package auth

import (
	"context"
	"strings"
	"time"
)

// Middleware authenticates a request's Authorization header into an
// AuthContext, grounded on middleware.rs's AuthMiddleware.
type Middleware struct {
	jwt     *JWTManager
	apiKeys *APIKeyManager
	rbac    *RBACEngine
}

// NewMiddleware wires a Middleware over its three dependencies.
func NewMiddleware(jwt *JWTManager, apiKeys *APIKeyManager, rbac *RBACEngine) *Middleware {
	return &Middleware{jwt: jwt, apiKeys: apiKeys, rbac: rbac}
}

// Authenticate parses an Authorization header value ("Bearer <jwt>"
// or "ApiKey <key>") and returns the resulting AuthContext.
func (m *Middleware) Authenticate(ctx context.Context, authorizationHeader string) (AuthContext, error) {
	if authorizationHeader == "" {
		return AuthContext{}, ErrMissingCredentials
	}

	if token, ok := strings.CutPrefix(authorizationHeader, "Bearer "); ok {
		return m.authenticateJWT(token)
	}
	if key, ok := strings.CutPrefix(authorizationHeader, "ApiKey "); ok {
		return m.authenticateAPIKey(ctx, key)
	}
	return AuthContext{}, ErrInvalidCredentials
}

func (m *Middleware) authenticateJWT(token string) (AuthContext, error) {
	claims, err := m.jwt.VerifyToken(token)
	if err != nil {
		return AuthContext{}, err
	}

	permissions := m.rbac.ComputePermissions(claims.Roles)
	return AuthContext{
		UserID:      claims.Subject,
		Roles:       claims.Roles,
		Permissions: permissions,
		AuthType:    AuthTypeJWT,
		Credential:  token,
		ExpiresAt:   time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

func (m *Middleware) authenticateAPIKey(ctx context.Context, rawKey string) (AuthContext, error) {
	info, err := m.apiKeys.LookupKey(ctx, rawKey)
	if err != nil {
		return AuthContext{}, err
	}

	permissions := scopesToPermissions(info.Scopes)
	roles := scopesToRoles(info.Scopes)

	expiresAt := time.Now().UTC().AddDate(10, 0, 0)
	if info.ExpiresAt != nil {
		expiresAt = *info.ExpiresAt
	}

	return AuthContext{
		UserID:      info.UserID,
		Roles:       roles,
		Permissions: permissions,
		AuthType:    AuthTypeAPIKey,
		Credential:  info.ID,
		ExpiresAt:   expiresAt,
	}, nil
}

// scopesToPermissions translates API key scopes into permissions,
// grounded on middleware.rs's scopes_to_permissions.
func scopesToPermissions(scopes []string) []Permission {
	var out []Permission
	for _, scope := range scopes {
		switch scope {
		case "workflow:read":
			out = append(out, PermissionWorkflowRead)
		case "workflow:write":
			out = append(out, PermissionWorkflowWrite)
		case "workflow:execute":
			out = append(out, PermissionWorkflowExecute)
		case "workflow:delete":
			out = append(out, PermissionWorkflowDelete)
		case "execution:read":
			out = append(out, PermissionExecutionRead)
		case "execution:cancel":
			out = append(out, PermissionExecutionCancel)
		case "admin":
			out = append(out, PermissionAdminAccess)
		}
	}
	return out
}

// scopesToRoles derives a single representative role from API key
// scopes for backward compatibility with role-based checks, grounded
// on middleware.rs's scopes_to_roles.
func scopesToRoles(scopes []string) []string {
	has := func(scope string) bool {
		for _, s := range scopes {
			if s == scope {
				return true
			}
		}
		return false
	}

	hasRead := has("workflow:read")
	hasWrite := has("workflow:write")
	hasExecute := has("workflow:execute")
	hasAdmin := has("admin")

	switch {
	case hasAdmin:
		return []string{"admin"}
	case hasWrite && hasExecute:
		return []string{"developer"}
	case hasExecute:
		return []string{"executor"}
	case hasRead:
		return []string{"viewer"}
	default:
		return nil
	}
}

// ExtractBearerToken returns the token portion of a "Bearer <token>"
// header, or "" if the header does not use that scheme.
func ExtractBearerToken(authorizationHeader string) string {
	token, ok := strings.CutPrefix(authorizationHeader, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// ExtractAPIKey returns the key portion of an "ApiKey <key>" header,
// or "" if the header does not use that scheme.
func ExtractAPIKey(authorizationHeader string) string {
	key, ok := strings.CutPrefix(authorizationHeader, "ApiKey ")
	if !ok {
		return ""
	}
	return key
}

// Authorize checks whether ctx's roles grant permission.
func (m *Middleware) Authorize(ctx AuthContext, permission Permission) error {
	return m.rbac.RequirePermission(ctx, permission)
}
