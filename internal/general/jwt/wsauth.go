package jwt

import (
	"encoding/json"
	"errors"
	"strings"

	"valet/internal/domain/user"
)

var (
	ErrBadAuthMsg   = errors.New("invalid auth message")
	ErrBadTokenWrap = errors.New("token must be 'Bearer <token>'")
)

// AuthFrame is the first frame a channel subscriber sends:
//
//	{"type":"auth","token":"Bearer <jwt>"}
type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Subscriber is the identity behind an authenticated channel connection.
type Subscriber struct {
	Claims *Claims
	Actor  user.Actor
}

// ValidateWSAuth checks the auth frame and that its role may use the endpoint.
func ValidateWSAuth(frame []byte, mgr *Manager, allowedRoles ...user.Role) (*Subscriber, error) {
	var f AuthFrame
	if err := json.Unmarshal(frame, &f); err != nil || !strings.EqualFold(strings.TrimSpace(f.Type), "auth") {
		return nil, ErrBadAuthMsg
	}
	raw, ok := bearer(f.Token)
	if !ok {
		return nil, ErrBadTokenWrap
	}
	_, claims, err := mgr.ParseAndValidate(raw)
	if err != nil {
		return nil, err
	}
	if err := RoleAllowed(claims, allowedRoles...); err != nil {
		return nil, err
	}
	return &Subscriber{Claims: claims, Actor: claims.Actor()}, nil
}
