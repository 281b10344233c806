package retention

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chatrank/chatrank/internal/clock"
	"github.com/chatrank/chatrank/internal/event"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	scoringservice "github.com/chatrank/chatrank/internal/scoring/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestRunOncePrunesOldLedgerRows(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&scoringdomain.ActivityEvent{}, &scoringdomain.PeriodBucket{}))

	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	scoring := scoringservice.NewService(scoringservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Policy:   scoringdomain.DefaultPolicy(),
		Location: time.UTC,
	})

	apply := func(messageID int, at time.Time) {
		_, err := scoring.Apply(context.Background(), event.Event{
			UserID:     7,
			ChatID:     -100,
			MessageID:  messageID,
			Kind:       event.KindText,
			OccurredAt: at,
		})
		require.NoError(t, err)
	}
	apply(1, clk.Now().Add(-60*24*time.Hour))
	apply(2, clk.Now().Add(-time.Hour))

	pruner := NewPruner(Params{
		Log:     zap.NewNop(),
		Clock:   clk,
		Scoring: scoring,
		Config:  Config{Retention: 30 * 24 * time.Hour, Interval: time.Hour},
	})

	require.NoError(t, pruner.RunOnce(context.Background()))

	var remaining int64
	require.NoError(t, db.Model(&scoringdomain.ActivityEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}
