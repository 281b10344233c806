package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chatrank/chatrank/internal/clock"
	"github.com/chatrank/chatrank/internal/event"
	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	scoringservice "github.com/chatrank/chatrank/internal/scoring/service"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	userservice "github.com/chatrank/chatrank/internal/user/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	clk     *clock.FakeClock
	users   userdomain.Service
	scoring scoringdomain.Service
	board   leaderboarddomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&scoringdomain.ActivityEvent{},
		&scoringdomain.PeriodBucket{},
	))

	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	users := userservice.NewService(userservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
	})
	scoring := scoringservice.NewService(scoringservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Policy:   scoringdomain.DefaultPolicy(),
		Location: time.UTC,
	})
	board := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clk,
		Location: time.UTC,
		UserSvc:  users,
	})

	return &fixture{db: db, clk: clk, users: users, scoring: scoring, board: board}
}

func (f *fixture) registerUser(t *testing.T, id int64, name string) {
	t.Helper()
	_, err := f.users.Upsert(context.Background(), userdomain.Identity{ID: id, Username: name, DisplayName: name})
	require.NoError(t, err)
}

func (f *fixture) score(t *testing.T, userID int64, messageID int, kind event.Kind, at time.Time) {
	t.Helper()
	outcome, err := f.scoring.Apply(context.Background(), event.Event{
		UserID:     userID,
		ChatID:     -100,
		MessageID:  messageID,
		Kind:       kind,
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Equal(t, scoringdomain.OutcomeApplied, outcome)
}

func TestRankOrdersByPoints(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	f.registerUser(t, 1, "alice")
	f.registerUser(t, 2, "bob")
	f.registerUser(t, 3, "carol")

	msgID := 1
	for i := 0; i < 3; i++ {
		f.score(t, 1, msgID, event.KindText, at)
		msgID++
	}
	f.score(t, 2, msgID, event.KindText, at)
	msgID++
	for i := 0; i < 2; i++ {
		f.score(t, 3, msgID, event.KindText, at)
		msgID++
	}

	entries, err := f.board.Rank(context.Background(), leaderboarddomain.RankRequest{
		Period: scoringdomain.PeriodWeek,
		AsOf:   at,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, int64(1), entries[0].UserID)
	assert.Equal(t, int64(3), entries[0].Points)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "alice", entries[0].Username)

	assert.Equal(t, int64(3), entries[1].UserID)
	assert.Equal(t, 2, entries[1].Rank)

	assert.Equal(t, int64(2), entries[2].UserID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestRankTieBreaksOnMessageCount(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	f.registerUser(t, 1, "alice")
	f.registerUser(t, 2, "bob")

	// Both end at four points: alice with four texts, bob with two stickers.
	for i := 1; i <= 4; i++ {
		f.score(t, 1, i, event.KindText, at)
	}
	f.score(t, 2, 5, event.KindSticker, at)
	f.score(t, 2, 6, event.KindSticker, at)

	entries, err := f.board.Rank(context.Background(), leaderboarddomain.RankRequest{
		Period: scoringdomain.PeriodDay,
		AsOf:   at,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, entries[0].Points, entries[1].Points)
	assert.Equal(t, int64(1), entries[0].UserID, "higher message count wins the tie")
	assert.Equal(t, int64(2), entries[1].UserID)
}

func TestRankEmptyPeriod(t *testing.T) {
	f := newFixture(t)

	f.registerUser(t, 1, "alice")
	f.score(t, 1, 1, event.KindText, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	// A week with no activity yields an empty board, not an error.
	entries, err := f.board.Rank(context.Background(), leaderboarddomain.RankRequest{
		Period: scoringdomain.PeriodWeek,
		AsOf:   time.Date(2024, 4, 22, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRankExcludesZeroPointUsers(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	f.registerUser(t, 1, "alice")
	f.registerUser(t, 2, "bob")
	f.score(t, 1, 1, event.KindText, at)
	// Media carries no weight, so bob stays off the board.
	f.score(t, 2, 2, event.KindMedia, at)

	entries, err := f.board.Rank(context.Background(), leaderboarddomain.RankRequest{
		Period: scoringdomain.PeriodDay,
		AsOf:   at,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].UserID)
}

func TestRankAppliesDefaultAndMaxLimit(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	msgID := 1
	for id := int64(1); id <= 15; id++ {
		f.registerUser(t, id, "user")
		f.score(t, id, msgID, event.KindText, at)
		msgID++
	}

	entries, err := f.board.Rank(context.Background(), leaderboarddomain.RankRequest{
		Period: scoringdomain.PeriodDay,
		AsOf:   at,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 10, "default limit")

	entries, err = f.board.Rank(context.Background(), leaderboarddomain.RankRequest{
		Period: scoringdomain.PeriodDay,
		AsOf:   at,
		Limit:  1000,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 15, "limit is capped, not errored")
}

func TestRankCachesResults(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	f.registerUser(t, 1, "alice")
	f.score(t, 1, 1, event.KindText, at)

	cached := NewService(ServiceParam{
		DB:       f.db,
		Log:      zap.NewNop(),
		Clock:    f.clk,
		Location: time.UTC,
		UserSvc:  f.users,
		Config:   Config{CacheTTL: time.Minute},
	})

	req := leaderboarddomain.RankRequest{Period: scoringdomain.PeriodDay, AsOf: at}
	first, err := cached.Rank(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first, 1)

	f.score(t, 1, 2, event.KindText, at)

	second, err := cached.Rank(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first[0].Points, second[0].Points, "served from cache inside the TTL")
}

func TestUserStats(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	f.registerUser(t, 1, "alice")
	f.registerUser(t, 2, "bob")
	f.score(t, 1, 1, event.KindText, at)
	f.score(t, 1, 2, event.KindSticker, at)
	f.score(t, 2, 3, event.KindText, at)

	stats, err := f.board.UserStats(context.Background(), 2, scoringdomain.PeriodDay, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessageCount)
	assert.Equal(t, int64(1), stats.Points)
	assert.Equal(t, 2, stats.Rank)
	assert.Equal(t, int64(2), stats.TotalTracked)
}

func TestUserStatsNoActivity(t *testing.T) {
	f := newFixture(t)

	f.registerUser(t, 1, "alice")

	stats, err := f.board.UserStats(context.Background(), 1, scoringdomain.PeriodWeek, f.clk.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Points)
	assert.Zero(t, stats.Rank, "no rank without points")
	assert.Equal(t, int64(1), stats.TotalTracked)
}

func TestUserStatsUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.board.UserStats(context.Background(), 404, scoringdomain.PeriodDay, f.clk.Now())
	assert.ErrorIs(t, err, leaderboarddomain.ErrUserNotFound)
}
