package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"valet/internal/domain/user"
	"valet/internal/ports"
)

// CustomerDirectory provisions customers keyed by phone.
type CustomerDirectory struct {
	mu      sync.Mutex
	byPhone map[string]*user.Customer
}

func NewCustomerDirectory() *CustomerDirectory {
	return &CustomerDirectory{byPhone: make(map[string]*user.Customer)}
}

var _ ports.CustomerDirectory = (*CustomerDirectory)(nil)

// FindOrCreate returns the customer for phone, creating it on first sight.
// Blank name/email on an existing record are filled in; set values are kept.
func (d *CustomerDirectory) FindOrCreate(ctx context.Context, phone, name, email string) (*user.Customer, error) {
	phone = strings.TrimSpace(phone)

	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.byPhone[phone]; ok {
		if c.Name == "" && name != "" {
			c.Name = name
			c.UpdatedAt = time.Now().UTC()
		}
		if c.Email == "" && email != "" {
			c.Email = email
			c.UpdatedAt = time.Now().UTC()
		}
		out := *c
		return &out, nil
	}

	c, err := user.NewCustomer(phone, name, email)
	if err != nil {
		return nil, err
	}
	c.ID = uuid.NewString()
	d.byPhone[c.Phone] = c
	out := *c
	return &out, nil
}
