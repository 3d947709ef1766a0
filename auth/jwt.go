package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer               = "llm-orchestrator"
	defaultAccessExpirySeconds  = 900    // 15 minutes
	defaultRefreshExpirySeconds = 604800 // 7 days
)

// JWTManager issues and verifies access and refresh tokens, grounded
// on jwt.rs's JwtAuth.
type JWTManager struct {
	secret               []byte
	issuer               string
	accessExpirySeconds  int64
	refreshExpirySeconds int64
	method               jwt.SigningMethod
}

// JWTOption configures a JWTManager at construction, mirroring
// jwt.rs's JwtAuthBuilder (SPEC_FULL.md §4.8).
type JWTOption func(*JWTManager)

// WithIssuer overrides the default "llm-orchestrator" issuer.
func WithIssuer(issuer string) JWTOption {
	return func(m *JWTManager) { m.issuer = issuer }
}

// WithAccessExpiry overrides the default 15-minute access token expiry.
func WithAccessExpiry(seconds int64) JWTOption {
	return func(m *JWTManager) { m.accessExpirySeconds = seconds }
}

// WithRefreshExpiry overrides the default 7-day refresh token expiry.
func WithRefreshExpiry(seconds int64) JWTOption {
	return func(m *JWTManager) { m.refreshExpirySeconds = seconds }
}

// NewJWTManager returns a manager signing HS256 tokens with secret,
// 15-minute access expiry, 7-day refresh expiry, and issuer
// "llm-orchestrator" unless overridden by opts.
func NewJWTManager(secret []byte, opts ...JWTOption) *JWTManager {
	m := &JWTManager{
		secret:               secret,
		issuer:               defaultIssuer,
		accessExpirySeconds:  defaultAccessExpirySeconds,
		refreshExpirySeconds: defaultRefreshExpirySeconds,
		method:               jwt.SigningMethodHS256,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateToken issues a signed access token for userID carrying
// roles.
func (m *JWTManager) GenerateToken(userID string, roles []string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"roles": roles,
		"exp":   now.Add(time.Duration(m.accessExpirySeconds) * time.Second).Unix(),
		"iat":   now.Unix(),
		"iss":   m.issuer,
		"jti":   uuid.NewString(),
	}
	token := jwt.NewWithClaims(m.method, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", &InvalidTokenError{Reason: err.Error(), Err: err}
	}
	return signed, nil
}

// GenerateRefreshToken issues a long-lived, minimal-claim refresh
// token for userID.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now().UTC()
	rc := refreshClaims{
		Subject:   userID,
		ExpiresAt: now.Add(time.Duration(m.refreshExpirySeconds) * time.Second).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    m.issuer,
		JTI:       uuid.NewString(),
		TokenType: "refresh",
	}
	token := jwt.NewWithClaims(m.method, rc.toMapClaims())
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", &InvalidTokenError{Reason: err.Error(), Err: err}
	}
	return signed, nil
}

// toMapClaims renders c into the jwt.MapClaims shape golang-jwt signs,
// keeping the refresh token's field set defined in one typed place
// rather than duplicated across generation and verification.
func (c refreshClaims) toMapClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":        c.Subject,
		"exp":        c.ExpiresAt,
		"iat":        c.IssuedAt,
		"iss":        c.Issuer,
		"jti":        c.JTI,
		"token_type": c.TokenType,
	}
}

// refreshClaimsFromMap recovers a refreshClaims from parsed
// jwt.MapClaims, the inverse of toMapClaims.
func refreshClaimsFromMap(raw jwt.MapClaims) refreshClaims {
	exp, _ := raw["exp"].(float64)
	iat, _ := raw["iat"].(float64)
	sub, _ := raw["sub"].(string)
	iss, _ := raw["iss"].(string)
	jti, _ := raw["jti"].(string)
	tokenType, _ := raw["token_type"].(string)
	return refreshClaims{
		Subject:   sub,
		ExpiresAt: int64(exp),
		IssuedAt:  int64(iat),
		Issuer:    iss,
		JTI:       jti,
		TokenType: tokenType,
	}
}

func (m *JWTManager) parse(tokenString string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithValidMethods([]string{m.method.Alg()}))
	if err != nil {
		return nil, &InvalidTokenError{Reason: err.Error(), Err: err}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, &InvalidTokenError{Reason: "unparseable claims"}
	}
	return claims, nil
}

// VerifyToken parses and validates an access token, returning its
// claims.
func (m *JWTManager) VerifyToken(tokenString string) (Claims, error) {
	raw, err := m.parse(tokenString)
	if err != nil {
		return Claims{}, err
	}

	exp, _ := raw["exp"].(float64)
	if int64(exp) < time.Now().UTC().Unix() {
		return Claims{}, ErrTokenExpired
	}

	sub, _ := raw["sub"].(string)
	iss, _ := raw["iss"].(string)
	iat, _ := raw["iat"].(float64)
	jti, _ := raw["jti"].(string)

	var roles []string
	if raw["roles"] != nil {
		if list, ok := raw["roles"].([]any); ok {
			for _, r := range list {
				if s, ok := r.(string); ok {
					roles = append(roles, s)
				}
			}
		}
	}

	return Claims{
		Subject:   sub,
		Roles:     roles,
		ExpiresAt: int64(exp),
		IssuedAt:  int64(iat),
		Issuer:    iss,
		JTI:       jti,
	}, nil
}

// VerifyRefreshToken parses and validates a refresh token, returning
// the subject it was issued for.
func (m *JWTManager) VerifyRefreshToken(tokenString string) (string, error) {
	raw, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}

	rc := refreshClaimsFromMap(raw)
	if rc.ExpiresAt < time.Now().UTC().Unix() {
		return "", ErrTokenExpired
	}
	if rc.TokenType != "refresh" {
		return "", &InvalidTokenError{Reason: "not a refresh token"}
	}
	return rc.Subject, nil
}

// RefreshAccessToken verifies refreshToken and issues a fresh access
// token for its subject, using the caller-supplied current roles
// (roles may have changed since the refresh token was issued).
func (m *JWTManager) RefreshAccessToken(refreshToken string, roles []string) (string, error) {
	userID, err := m.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}
	return m.GenerateToken(userID, roles)
}
