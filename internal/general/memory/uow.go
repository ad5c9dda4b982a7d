package memory

import (
	"context"

	"valet/internal/ports"
)

// unitOfWork runs fn directly: each store already serializes its own writes.
type unitOfWork struct{}

// NewUnitOfWork returns the pass-through unit of work used with the in-memory stores.
func NewUnitOfWork() ports.UnitOfWork {
	return unitOfWork{}
}

func (unitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
