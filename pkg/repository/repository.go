package repository

import (
	"context"

	"github.com/chatrank/chatrank/pkg/db/option"
)

// Repository is a narrow generic gorm read store shared by the domain
// services. Writes go through the services' own transactional paths.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Count(ctx context.Context, query *T) (int64, error)
}
