package domain

import (
	"context"
	"errors"
)

// Identity is the raw sender identity carried by an inbound message.
type Identity struct {
	ID          int64
	Username    string
	DisplayName string
}

type Service interface {
	// Upsert registers the identity on first sight and refreshes the
	// mutable fields on every call.
	Upsert(ctx context.Context, identity Identity) (*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	// Deactivate marks a departed user without deleting the row.
	Deactivate(ctx context.Context, id int64) error
	// Count returns the number of users ever registered.
	Count(ctx context.Context) (int64, error)
}

var (
	ErrInvalidIdentity = errors.New("invalid_identity")
	ErrUserNotFound    = errors.New("user_not_found")
)
