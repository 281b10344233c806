package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/chatrank/chatrank/internal/cache"
	"github.com/chatrank/chatrank/internal/clock"
	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	obsmetrics "github.com/chatrank/chatrank/internal/observability/metrics"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	return c
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Location *time.Location
	UserSvc  userdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	loc     *time.Location
	userSvc userdomain.Service
	metrics *obsmetrics.Metrics
	cfg     Config
	entries cache.Cache[string, []leaderboarddomain.Entry]
}

func NewService(p ServiceParam) leaderboarddomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("leaderboard.service"),
		clock:   p.Clock,
		loc:     p.Location,
		userSvc: p.UserSvc,
		metrics: p.Metrics,
		cfg:     p.Config.withDefaults(),
		entries: cache.NewTTLCache[string, []leaderboarddomain.Entry](),
	}
}

type entryRow struct {
	UserID       int64  `gorm:"column:user_id"`
	Username     string `gorm:"column:username"`
	DisplayName  string `gorm:"column:display_name"`
	MessageCount int64  `gorm:"column:message_count"`
	StickerCount int64  `gorm:"column:sticker_count"`
	Points       int64  `gorm:"column:points"`
}

func (s *Service) Rank(ctx context.Context, req leaderboarddomain.RankRequest) ([]leaderboarddomain.Entry, error) {
	period := req.Period
	if period == "" {
		period = scoringdomain.PeriodAllTime
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	limit := s.clampLimit(req.Limit)
	periodStart := period.StartFor(asOf, s.loc)

	key := cache.Key(string(period), periodStart.Format(time.RFC3339), strconv.Itoa(limit))
	if cached, ok := s.entries.Get(key); ok {
		return cached, nil
	}

	s.metrics.RecordLeaderboardQuery(ctx, string(period))

	var rows []entryRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT b.user_id, u.username, u.display_name,
		        b.message_count, b.sticker_count, b.points
		 FROM period_buckets b
		 JOIN users u ON u.id = b.user_id
		 WHERE b.period_type = ? AND b.period_start = ? AND b.points > 0
		 ORDER BY b.points DESC, b.message_count DESC, b.user_id ASC
		 LIMIT ?`,
		period,
		periodStart,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboarddomain.Entry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, leaderboarddomain.Entry{
			UserID:       row.UserID,
			Username:     row.Username,
			DisplayName:  row.DisplayName,
			MessageCount: row.MessageCount,
			StickerCount: row.StickerCount,
			Points:       row.Points,
			Rank:         i + 1,
		})
	}

	s.entries.Set(key, entries, s.cfg.CacheTTL)
	return entries, nil
}

func (s *Service) UserStats(ctx context.Context, userID int64, period scoringdomain.PeriodType, asOf time.Time) (*leaderboarddomain.UserStats, error) {
	record, err := s.userSvc.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return nil, leaderboarddomain.ErrUserNotFound
		}
		return nil, err
	}

	if period == "" {
		period = scoringdomain.PeriodAllTime
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	periodStart := period.StartFor(asOf, s.loc)

	stats := &leaderboarddomain.UserStats{
		UserID:      record.ID,
		Username:    record.Username,
		DisplayName: record.DisplayName,
	}

	var bucket scoringdomain.PeriodBucket
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND period_type = ? AND period_start = ?", userID, period, periodStart).
		First(&bucket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			bucket = scoringdomain.PeriodBucket{}
		} else {
			return nil, err
		}
	}

	stats.MessageCount = bucket.MessageCount
	stats.StickerCount = bucket.StickerCount
	stats.Points = bucket.Points

	if bucket.Points > 0 {
		rank, err := s.rankOf(ctx, period, periodStart, bucket)
		if err != nil {
			return nil, err
		}
		stats.Rank = rank
	}

	total, err := s.TotalTracked(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalTracked = total

	return stats, nil
}

// rankOf counts the buckets that sort strictly before the user's under the
// total order (points desc, message_count desc, user_id asc).
func (s *Service) rankOf(ctx context.Context, period scoringdomain.PeriodType, periodStart time.Time, bucket scoringdomain.PeriodBucket) (int, error) {
	var ahead int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM period_buckets
		 WHERE period_type = ? AND period_start = ? AND points > 0
		   AND (points > ?
		     OR (points = ? AND message_count > ?)
		     OR (points = ? AND message_count = ? AND user_id < ?))`,
		period,
		periodStart,
		bucket.Points,
		bucket.Points, bucket.MessageCount,
		bucket.Points, bucket.MessageCount, bucket.UserID,
	).Scan(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}

func (s *Service) TotalTracked(ctx context.Context) (int64, error) {
	return s.userSvc.Count(ctx)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
