package cli

import (
	"fmt"
	"time"

	"valet/internal/domain/user"
	"valet/internal/general/jwt"
)

// GenerateToken mints a JWT for a seeded user. Customer tokens need phone, the
// claim their bookings are matched on.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateToken(secret, time.Hour, "D1", "driver", "")
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateToken(secret string, ttl time.Duration, subject, roleStr, phone string) (string, jwt.Claims, error) {
	// parse and validate the role
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}

	mgr := jwt.NewManager(secret, ttl)

	var (
		token  string
		claims *jwt.Claims
	)
	if role.IsCustomer() {
		token, claims, err = mgr.IssueCustomerToken(subject, phone)
	} else {
		token, claims, err = mgr.IssueUserToken(subject, role)
	}
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
