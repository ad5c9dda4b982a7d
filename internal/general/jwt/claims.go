package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"valet/internal/domain/user"
)

// Claims defines our canonical JWT claims payload.
type Claims struct {
	Role  user.Role `json:"role"`            // DRIVER / CUSTOMER / SUPERVISOR / ADMIN
	Phone string    `json:"phone,omitempty"` // customers only: the phone their bookings are keyed by
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs claims for an actor.
func NewUserClaims(subject string, role user.Role, phone string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role:  role,
		Phone: phone,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// Actor converts verified claims into the identity the booking engine checks.
func (c *Claims) Actor() user.Actor {
	return user.Actor{ID: c.Subject, Role: c.Role, Phone: c.Phone}
}
