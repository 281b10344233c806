package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chatrank/chatrank/internal/clock"
	"github.com/chatrank/chatrank/internal/event"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&scoringdomain.ActivityEvent{}, &scoringdomain.PeriodBucket{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) scoringdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)),
		Policy:   scoringdomain.DefaultPolicy(),
		Location: time.UTC,
	})
}

func newRetryTestService(t *testing.T, db *gorm.DB, cfg Config) scoringdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)),
		Policy:   scoringdomain.DefaultPolicy(),
		Location: time.UTC,
		Config:   cfg,
	})
}

// failCreates makes the first `times` INSERTs on db fail with the given
// message; times < 0 means every INSERT fails. The ledger insert opens
// each apply attempt, so one failure aborts one attempt.
func failCreates(t *testing.T, db *gorm.DB, message string, times int) *int {
	t.Helper()
	failed := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test_failing_create", func(tx *gorm.DB) {
		if times >= 0 && failed >= times {
			return
		}
		failed++
		tx.AddError(errors.New(message))
	}))
	return &failed
}

func retryConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}
}

func textEvent(userID int64, messageID int, at time.Time) event.Event {
	return event.Event{
		UserID:     userID,
		ChatID:     -100,
		MessageID:  messageID,
		Kind:       event.KindText,
		OccurredAt: at,
	}
}

func stickerEvent(userID int64, messageID int, at time.Time) event.Event {
	ev := textEvent(userID, messageID, at)
	ev.Kind = event.KindSticker
	return ev
}

func bucketFor(t *testing.T, db *gorm.DB, userID int64, period scoringdomain.PeriodType, start time.Time) scoringdomain.PeriodBucket {
	t.Helper()
	var bucket scoringdomain.PeriodBucket
	err := db.Where("user_id = ? AND period_type = ? AND period_start = ?", userID, period, start).
		First(&bucket).Error
	require.NoError(t, err)
	return bucket
}

func TestApplyScoresAllPeriods(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	// Three text messages and a sticker with the default weights.
	for i := 1; i <= 3; i++ {
		outcome, err := svc.Apply(ctx, textEvent(7, i, at))
		require.NoError(t, err)
		assert.Equal(t, scoringdomain.OutcomeApplied, outcome)
	}
	outcome, err := svc.Apply(ctx, stickerEvent(7, 4, at))
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.OutcomeApplied, outcome)

	allTime := bucketFor(t, db, 7, scoringdomain.PeriodAllTime, scoringdomain.AllTimeStart)
	assert.Equal(t, int64(3), allTime.MessageCount)
	assert.Equal(t, int64(1), allTime.StickerCount)
	assert.Equal(t, int64(4), allTime.ActivityCount)
	assert.Equal(t, int64(5), allTime.Points)

	day := bucketFor(t, db, 7, scoringdomain.PeriodDay, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(5), day.Points)

	week := bucketFor(t, db, 7, scoringdomain.PeriodWeek, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(5), week.Points)

	month := bucketFor(t, db, 7, scoringdomain.PeriodMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(5), month.Points)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	outcome, err := svc.Apply(ctx, textEvent(7, 1, at))
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.OutcomeApplied, outcome)

	// Redelivery of the same (chatID, messageID) must be a no-op.
	for i := 0; i < 3; i++ {
		outcome, err = svc.Apply(ctx, textEvent(7, 1, at))
		require.NoError(t, err)
		assert.Equal(t, scoringdomain.OutcomeDuplicate, outcome)
	}

	allTime := bucketFor(t, db, 7, scoringdomain.PeriodAllTime, scoringdomain.AllTimeStart)
	assert.Equal(t, int64(1), allTime.MessageCount)
	assert.Equal(t, int64(1), allTime.Points)

	var ledger int64
	require.NoError(t, db.Model(&scoringdomain.ActivityEvent{}).Count(&ledger).Error)
	assert.Equal(t, int64(1), ledger)
}

func TestApplySameMessageIDDifferentChats(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	first := textEvent(7, 1, at)
	second := textEvent(7, 1, at)
	second.ChatID = -200

	outcome, err := svc.Apply(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.OutcomeApplied, outcome)

	outcome, err = svc.Apply(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.OutcomeApplied, outcome, "dedup key is (chatID, messageID)")
}

func TestApplyIsCommutative(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	events := []event.Event{
		textEvent(7, 1, at),
		stickerEvent(7, 2, at.Add(time.Minute)),
		textEvent(7, 3, at.Add(2*time.Minute)),
		stickerEvent(7, 4, at.Add(3*time.Minute)),
		textEvent(7, 5, at.Add(4*time.Minute)),
	}

	apply := func(order []event.Event) scoringdomain.PeriodBucket {
		db := newTestDB(t)
		svc := newTestService(t, db)
		for _, ev := range order {
			_, err := svc.Apply(context.Background(), ev)
			require.NoError(t, err)
		}
		return bucketFor(t, db, 7, scoringdomain.PeriodAllTime, scoringdomain.AllTimeStart)
	}

	want := apply(events)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]event.Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := apply(shuffled)
		assert.Equal(t, want.MessageCount, got.MessageCount)
		assert.Equal(t, want.StickerCount, got.StickerCount)
		assert.Equal(t, want.Points, got.Points)
	}
}

func TestApplyUnweightedKindsCountActivityOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	ev := textEvent(7, 1, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	ev.Kind = event.KindMedia

	outcome, err := svc.Apply(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.OutcomeApplied, outcome)

	allTime := bucketFor(t, db, 7, scoringdomain.PeriodAllTime, scoringdomain.AllTimeStart)
	assert.Equal(t, int64(0), allTime.MessageCount)
	assert.Equal(t, int64(0), allTime.Points)
	assert.Equal(t, int64(1), allTime.ActivityCount)
}

func TestApplyRejectsInvalidEvent(t *testing.T) {
	svc := newTestService(t, newTestDB(t))

	outcome, err := svc.Apply(context.Background(), event.Event{})
	assert.Equal(t, scoringdomain.OutcomeRejected, outcome)
	assert.ErrorIs(t, err, scoringdomain.ErrInvalidEvent)
}

func TestApplyDayBucketsSumIntoWeek(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	// One text message per day across a full ISO week.
	msgID := 1
	for day := 11; day <= 17; day++ {
		at := time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC)
		_, err := svc.Apply(ctx, textEvent(7, msgID, at))
		require.NoError(t, err)
		msgID++
	}

	var dayTotal int64
	require.NoError(t, db.Model(&scoringdomain.PeriodBucket{}).
		Where("user_id = ? AND period_type = ?", 7, scoringdomain.PeriodDay).
		Select("COALESCE(SUM(points), 0)").
		Scan(&dayTotal).Error)

	week := bucketFor(t, db, 7, scoringdomain.PeriodWeek, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, week.Points, dayTotal)
}

func TestApplyRetriesTransientFailures(t *testing.T) {
	db := newTestDB(t)
	svc := newRetryTestService(t, db, retryConfig(4))
	failed := failCreates(t, db, "database is locked", 2)

	outcome, err := svc.Apply(context.Background(), textEvent(7, 1, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.OutcomeApplied, outcome)
	assert.Equal(t, 2, *failed)

	var ledger int64
	require.NoError(t, db.Model(&scoringdomain.ActivityEvent{}).Count(&ledger).Error)
	assert.Equal(t, int64(1), ledger)
}

func TestApplyExhaustedRetriesMapToPersistenceUnavailable(t *testing.T) {
	db := newTestDB(t)
	svc := newRetryTestService(t, db, retryConfig(3))
	failed := failCreates(t, db, "database is locked", -1)

	outcome, err := svc.Apply(context.Background(), textEvent(7, 1, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, scoringdomain.OutcomeRejected, outcome)
	assert.ErrorIs(t, err, scoringdomain.ErrPersistenceUnavailable)
	assert.Equal(t, 3, *failed, "attempts are bounded by the configured maximum")
}

func TestApplyExhaustedConflictsMapToConflictRetryExhausted(t *testing.T) {
	db := newTestDB(t)
	svc := newRetryTestService(t, db, retryConfig(3))
	failed := failCreates(t, db, "deadlock detected", -1)

	outcome, err := svc.Apply(context.Background(), textEvent(7, 1, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, scoringdomain.OutcomeRejected, outcome)
	assert.ErrorIs(t, err, scoringdomain.ErrConflictRetryExhausted)
	assert.Equal(t, 3, *failed)
}

func TestApplyDoesNotRetryPermanentFailures(t *testing.T) {
	db := newTestDB(t)
	svc := newRetryTestService(t, db, retryConfig(4))
	failed := failCreates(t, db, "no such table: activity_events", -1)

	outcome, err := svc.Apply(context.Background(), textEvent(7, 1, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, scoringdomain.OutcomeRejected, outcome)
	assert.ErrorContains(t, err, "no such table")
	assert.Equal(t, 1, *failed, "a non-transient failure is surfaced on the first attempt")
}

func TestListEventsPaginates(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		_, err := svc.Apply(ctx, textEvent(7, i, at.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, scoringdomain.ListEventsRequest{UserID: 7, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Events, 3)
	assert.True(t, resp.HasMore)
	assert.NotEmpty(t, resp.NextPageToken)
}

func TestPruneLedgerKeepsBuckets(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	old := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	_, err := svc.Apply(ctx, textEvent(7, 1, old))
	require.NoError(t, err)
	_, err = svc.Apply(ctx, textEvent(7, 2, recent))
	require.NoError(t, err)

	pruned, err := svc.PruneLedger(ctx, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	var remaining int64
	require.NoError(t, db.Model(&scoringdomain.ActivityEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	// Aggregates survive the prune.
	allTime := bucketFor(t, db, 7, scoringdomain.PeriodAllTime, scoringdomain.AllTimeStart)
	assert.Equal(t, int64(2), allTime.MessageCount)
}
