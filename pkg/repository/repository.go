// Package repository provides a small generic gorm-backed store used by the
// plain CRUD resources. The invariant-bearing paths (recalculation, webhook
// apply) use explicit transactions instead.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// QueryOption mutates the query statement before execution.
type QueryOption func(*gorm.DB) *gorm.DB

// Repository is a typed store over a single gorm model.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID int64, resource any) error
	Delete(ctx context.Context, resourceID int64) error
	Count(ctx context.Context, query *T) (int64, error)
}

// OrderBy sorts results by the given column expression.
func OrderBy(expr string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	}
}

// Limit caps the number of returned rows.
func Limit(n int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}
