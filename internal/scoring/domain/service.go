package domain

import (
	"context"
	"errors"
	"time"

	"github.com/chatrank/chatrank/internal/event"
	"github.com/chatrank/chatrank/pkg/db/pagination"
)

// Outcome reports what applying one event did to durable state.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
)

type ListEventsRequest struct {
	UserID    int64  `form:"user_id"`
	ChatID    int64  `form:"chat_id"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListEventsResponse struct {
	pagination.PageInfo
	Events []ActivityEvent `json:"events"`
}

type Service interface {
	// Apply scores one classified event into every period bucket, exactly
	// once per (chatID, messageID).
	Apply(ctx context.Context, ev event.Event) (Outcome, error)
	List(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
	// PruneLedger drops ledger rows older than the cutoff. Buckets are
	// untouched, so historical leaderboards survive the prune.
	PruneLedger(ctx context.Context, before time.Time) (int64, error)
}

var (
	ErrInvalidEvent           = errors.New("invalid_event")
	ErrPersistenceUnavailable = errors.New("persistence_unavailable")
	ErrConflictRetryExhausted = errors.New("conflict_retry_exhausted")
)
