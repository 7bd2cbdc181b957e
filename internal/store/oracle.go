package store

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// StorageOracle answers whether a session still exists by probing the
// storage backing the fiber session store. Expired sessions read as absent.
type StorageOracle struct {
	storage fiber.Storage
}

// NewStorageOracle wraps storage, typically session.Store.Storage.
func NewStorageOracle(storage fiber.Storage) *StorageOracle {
	return &StorageOracle{storage: storage}
}

// Exists reports whether id has stored session data.
func (o *StorageOracle) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b, err := o.storage.Get(id)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}
