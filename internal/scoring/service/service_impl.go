package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v5"
	"github.com/chatrank/chatrank/internal/clock"
	"github.com/chatrank/chatrank/internal/event"
	obsmetrics "github.com/chatrank/chatrank/internal/observability/metrics"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	"github.com/chatrank/chatrank/pkg/db"
	"github.com/chatrank/chatrank/pkg/db/option"
	"github.com/chatrank/chatrank/pkg/db/pagination"
	"github.com/chatrank/chatrank/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   scoringdomain.Policy
	Location *time.Location
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  scoringdomain.Policy
	loc     *time.Location
	metrics *obsmetrics.Metrics
	cfg     Config
	events  repository.Repository[scoringdomain.ActivityEvent]
}

func NewService(p ServiceParam) scoringdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("scoring.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		loc:     p.Location,
		metrics: p.Metrics,
		cfg:     p.Config.withDefaults(),
		events:  repository.ProvideStore[scoringdomain.ActivityEvent](p.DB),
	}
}

func (s *Service) Apply(ctx context.Context, ev event.Event) (scoringdomain.Outcome, error) {
	if ev.UserID == 0 || ev.ChatID == 0 || ev.MessageID == 0 || ev.OccurredAt.IsZero() {
		return scoringdomain.OutcomeRejected, scoringdomain.ErrInvalidEvent
	}

	points := s.policy.Weight(ev.Kind)

	operation := func() (scoringdomain.Outcome, error) {
		outcome, err := s.applyOnce(ctx, ev, points)
		if err != nil {
			if db.IsTransientErr(err) {
				return scoringdomain.OutcomeRejected, err
			}
			return scoringdomain.OutcomeRejected, backoff.Permanent(err)
		}
		return outcome, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.cfg.InitialInterval
	expo.MaxInterval = s.cfg.MaxInterval

	outcome, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(s.cfg.MaxAttempts)),
	)
	if err != nil {
		mapped := s.mapStoreErr(err)
		s.log.Warn("apply failed",
			zap.Int64("user_id", ev.UserID),
			zap.Int64("chat_id", ev.ChatID),
			zap.Int("message_id", ev.MessageID),
			zap.Error(err),
		)
		return scoringdomain.OutcomeRejected, mapped
	}

	if outcome == scoringdomain.OutcomeDuplicate {
		s.metrics.RecordDuplicate(ctx)
	}
	return outcome, nil
}

// applyOnce runs the ledger insert and all four bucket increments as one
// transaction. A dedup hit short-circuits before any bucket is touched.
func (s *Service) applyOnce(ctx context.Context, ev event.Event, points int64) (scoringdomain.Outcome, error) {
	outcome := scoringdomain.OutcomeApplied
	now := s.clock.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &scoringdomain.ActivityEvent{
			ID:         s.genID.Generate(),
			ChatID:     ev.ChatID,
			MessageID:  ev.MessageID,
			UserID:     ev.UserID,
			Kind:       ev.Kind,
			Points:     points,
			OccurredAt: ev.OccurredAt.UTC(),
			CreatedAt:  now,
		}

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}, {Name: "message_id"}},
			DoNothing: true,
		}).Create(record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			outcome = scoringdomain.OutcomeDuplicate
			return nil
		}

		for _, period := range scoringdomain.AllPeriods() {
			if err := s.upsertBucket(tx, ev, period, points, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return scoringdomain.OutcomeRejected, err
	}
	return outcome, nil
}

func (s *Service) upsertBucket(tx *gorm.DB, ev event.Event, period scoringdomain.PeriodType, points int64, now time.Time) error {
	var messageDelta, stickerDelta int64
	switch ev.Kind {
	case event.KindText:
		messageDelta = 1
	case event.KindSticker:
		stickerDelta = 1
	}

	bucket := &scoringdomain.PeriodBucket{
		UserID:        ev.UserID,
		PeriodType:    period,
		PeriodStart:   period.StartFor(ev.OccurredAt, s.loc),
		MessageCount:  messageDelta,
		StickerCount:  stickerDelta,
		ActivityCount: 1,
		Points:        points,
		UpdatedAt:     now,
	}

	// Additive increments keep bucket updates commutative, so events for
	// one user may be applied in any order.
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "period_type"}, {Name: "period_start"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"message_count":  gorm.Expr("message_count + ?", messageDelta),
			"sticker_count":  gorm.Expr("sticker_count + ?", stickerDelta),
			"activity_count": gorm.Expr("activity_count + ?", int64(1)),
			"points":         gorm.Expr("points + ?", points),
			"updated_at":     now,
		}),
	}).Create(bucket).Error
}

func (s *Service) List(ctx context.Context, req scoringdomain.ListEventsRequest) (scoringdomain.ListEventsResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := &scoringdomain.ActivityEvent{
		UserID: req.UserID,
		ChatID: req.ChatID,
	}

	items, err := s.events.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
	)
	if err != nil {
		return scoringdomain.ListEventsResponse{}, err
	}
	return buildListResponse(items, pageSize), nil
}

func (s *Service) PruneLedger(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("occurred_at < ?", before).
		Delete(&scoringdomain.ActivityEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Service) mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "deadlock detected") || strings.Contains(msg, "could not serialize access") {
		return scoringdomain.ErrConflictRetryExhausted
	}
	if db.IsTransientErr(err) {
		return scoringdomain.ErrPersistenceUnavailable
	}
	return err
}

func buildListResponse(items []*scoringdomain.ActivityEvent, pageSize int32) scoringdomain.ListEventsResponse {
	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *scoringdomain.ActivityEvent) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]scoringdomain.ActivityEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := scoringdomain.ListEventsResponse{Events: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp
}
