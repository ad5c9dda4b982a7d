package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Customer is the identity provisioned for a phone number the first time its
// access link is opened. It corresponds to the `customers` table.
type Customer struct {
	ID        string
	Phone     string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrPhoneRequired = errors.New("customer phone is required")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// NewCustomer validates and normalizes a customer identity. ID is assigned by the directory.
func NewCustomer(phone, name, email string) (*Customer, error) {
	now := time.Now().UTC()
	c := &Customer{
		Phone:     strings.TrimSpace(phone),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks invariants of the Customer entity.
func (c *Customer) Validate() error {
	if c.Phone == "" {
		return ErrPhoneRequired
	}
	if c.Email != "" && !ValidEmail(c.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidEmail reports whether s is a bare RFC 5322 address with no display name.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Name == "" && addr.Address == s
}

// Actor returns the customer actor for this identity.
func (c *Customer) Actor() Actor {
	return CustomerActor(c.ID, c.Phone)
}
