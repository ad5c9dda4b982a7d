package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"valet/internal/domain/user"
)

var (
	ErrMissingToken       = errors.New("missing or malformed Authorization")
	ErrInvalidSigningAlgo = errors.New("unexpected signing method")
	ErrRoleForbidden      = errors.New("role not allowed")
	ErrPhoneClaimMissing  = errors.New("customer token carries no phone")
)

// Manager handles JWT creation and validation.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewManager creates a token manager.
func NewManager(secret string, accessTTL time.Duration) *Manager {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("jwt: empty secret key")
	}
	return &Manager{secret: []byte(s), accessTTL: accessTTL}
}

// IssueUserToken returns a signed access token for staff (driver/supervisor/admin).
func (m *Manager) IssueUserToken(userID string, role user.Role) (string, *Claims, error) {
	if !role.Valid() {
		return "", nil, fmt.Errorf("invalid role: %s", role)
	}
	if role.IsCustomer() {
		return "", nil, ErrPhoneClaimMissing
	}
	return m.sign(NewUserClaims(userID, role, "", m.accessTTL))
}

// IssueCustomerToken returns the passwordless session token handed out when an
// access link is opened.
func (m *Manager) IssueCustomerToken(customerID, phone string) (string, *Claims, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil, ErrPhoneClaimMissing
	}
	return m.sign(NewUserClaims(customerID, user.RoleCustomer, phone, m.accessTTL))
}

func (m *Manager) sign(claims *Claims) (string, *Claims, error) {
	tkn := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := tkn.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// FromAuthorization reads "Authorization: Bearer <token>", falling back to the
// Authorization query parameter used by browser WebSocket clients.
func FromAuthorization(r *http.Request) (string, error) {
	if raw, ok := bearer(r.Header.Get("Authorization")); ok {
		return raw, nil
	}
	if authParam := strings.TrimSpace(r.URL.Query().Get("Authorization")); authParam != "" {
		if raw, ok := bearer(authParam); ok {
			return raw, nil
		}
		return authParam, nil
	}
	return "", ErrMissingToken
}

// bearer unwraps "Bearer <token>"; the scheme is case-insensitive.
func bearer(s string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// ParseAndValidate verifies signature and standard claims.
func (m *Manager) ParseAndValidate(tokenString string) (*jwtlib.Token, *Claims, error) {
	parser := jwtlib.NewParser(jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method != jwtlib.SigningMethodHS256 {
			return nil, ErrInvalidSigningAlgo
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !token.Valid {
		return nil, nil, errors.New("invalid token")
	}
	if !claims.Role.Valid() {
		return nil, nil, user.ErrInvalidRole
	}
	if claims.Role.IsCustomer() && claims.Phone == "" {
		return nil, nil, ErrPhoneClaimMissing
	}
	return token, claims, nil
}

// RoleAllowed asserts the claims' role is one of the allowed. No roles means any role.
func RoleAllowed(cl *Claims, allowed ...user.Role) error {
	if len(allowed) == 0 || slices.Contains(allowed, cl.Role) {
		return nil
	}
	return ErrRoleForbidden
}

// Context wiring (used by middleware)
type ctxKey string

const claimsCtxKey ctxKey = "jwtClaims"

// InjectClaims adds JWT claims to the context.
func InjectClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// FromContext extracts JWT claims from the context.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}
