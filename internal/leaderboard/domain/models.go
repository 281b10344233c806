// Package domain contains read models for ranked leaderboard views.
package domain

import (
	"context"
	"errors"
	"time"

	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
)

// Entry is one ranked row, derived at query time and never stored.
type Entry struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username,omitempty"`
	DisplayName  string `json:"display_name"`
	MessageCount int64  `json:"message_count"`
	StickerCount int64  `json:"sticker_count"`
	Points       int64  `json:"points"`
	Rank         int    `json:"rank"`
}

type RankRequest struct {
	Period scoringdomain.PeriodType
	AsOf   time.Time
	Limit  int
}

// UserStats reports one user's standing for a period. Rank is zero when the
// user has no points in the period.
type UserStats struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username,omitempty"`
	DisplayName  string `json:"display_name"`
	MessageCount int64  `json:"message_count"`
	StickerCount int64  `json:"sticker_count"`
	Points       int64  `json:"points"`
	Rank         int    `json:"rank"`
	TotalTracked int64  `json:"total_tracked"`
}

type Service interface {
	// Rank returns the ordered leaderboard for the period containing AsOf.
	// Users with zero points in the period are excluded.
	Rank(ctx context.Context, req RankRequest) ([]Entry, error)
	UserStats(ctx context.Context, userID int64, period scoringdomain.PeriodType, asOf time.Time) (*UserStats, error)
	// TotalTracked counts every user ever registered.
	TotalTracked(ctx context.Context) (int64, error)
}

var ErrUserNotFound = errors.New("user_not_found")
