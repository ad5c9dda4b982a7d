package postgres

import (
	"context"
	"fmt"

	"valet/internal/domain/user"
	"valet/internal/ports"
)

// CustomerRepo provisions customers in the customers table.
type CustomerRepo struct{}

func NewCustomerRepo() ports.CustomerDirectory {
	return &CustomerRepo{}
}

// FindOrCreate upserts by phone. Blank name/email never overwrite stored values.
func (repo *CustomerRepo) FindOrCreate(ctx context.Context, phone, name, email string) (*user.Customer, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	c, err := user.NewCustomer(phone, name, email)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO customers (phone, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET
			name       = CASE WHEN customers.name = '' THEN EXCLUDED.name ELSE customers.name END,
			email      = CASE WHEN customers.email = '' THEN EXCLUDED.email ELSE customers.email END,
			updated_at = now()
		RETURNING id::text, phone, name, email, created_at, updated_at
	`, c.Phone, c.Name, c.Email).Scan(&c.ID, &c.Phone, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return c, nil
}
