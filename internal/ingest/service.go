// Package ingest drives a raw Telegram message through classification,
// registration and scoring.
package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/chatrank/chatrank/internal/dedup"
	"github.com/chatrank/chatrank/internal/event"
	obsmetrics "github.com/chatrank/chatrank/internal/observability/metrics"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Status string

const (
	StatusScored    Status = "scored"
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
	StatusRejected  Status = "rejected"
)

// Result reports what happened to one message. Reason is only set for
// skipped messages.
type Result struct {
	Status Status
	Reason event.SkipReason
}

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Users   userdomain.Service
	Scoring scoringdomain.Service
	Dedup   dedup.Prober
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	users   userdomain.Service
	scoring scoringdomain.Service
	dedup   dedup.Prober
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) *Service {
	return &Service{
		log:     p.Log.Named("ingest"),
		users:   p.Users,
		scoring: p.Scoring,
		dedup:   p.Dedup,
		metrics: p.Metrics,
	}
}

// Process ingests one message end to end. Classification failures are
// reported as skips, never as errors; only persistence failures surface
// an error, so the caller can decide whether to retry the delivery.
func (s *Service) Process(ctx context.Context, msg *tgbotapi.Message) (Result, error) {
	ev, skip := event.Classify(msg)
	if skip != event.SkipNone {
		s.metrics.RecordSkip(ctx, string(skip))
		return Result{Status: StatusSkipped, Reason: skip}, nil
	}

	// Fast path: a positive probe means some earlier delivery already
	// went through the full pipeline. Probe errors fall through to the
	// ledger constraint.
	if seen, err := s.dedup.Seen(ctx, ev.ChatID, ev.MessageID); err == nil && seen {
		s.deactivateDeparted(ctx, ev)
		s.metrics.RecordDedupCacheHit(ctx)
		s.metrics.RecordIngest(ctx, string(StatusDuplicate))
		return Result{Status: StatusDuplicate}, nil
	}

	if _, err := s.users.Upsert(ctx, identityOf(msg)); err != nil {
		return Result{}, err
	}

	outcome, err := s.scoring.Apply(ctx, ev)
	if err != nil {
		if outcome == scoringdomain.OutcomeRejected {
			s.metrics.RecordIngest(ctx, string(StatusRejected))
			return Result{Status: StatusRejected}, err
		}
		return Result{}, err
	}

	// The probe key is claimed only once the outcome is durable. A
	// rejected event never reaches this point, so its redelivery takes
	// the full path again.
	if err := s.dedup.Mark(ctx, ev.ChatID, ev.MessageID); err != nil {
		s.log.Warn("dedup mark failed",
			zap.Int64("chat_id", ev.ChatID),
			zap.Int("message_id", ev.MessageID),
			zap.Error(err),
		)
	}

	// Runs after the sender upsert so a member announcing their own
	// departure ends up inactive.
	s.deactivateDeparted(ctx, ev)

	status := StatusScored
	if outcome == scoringdomain.OutcomeDuplicate {
		status = StatusDuplicate
	}
	s.metrics.RecordIngest(ctx, string(status))
	return Result{Status: status}, nil
}

func (s *Service) deactivateDeparted(ctx context.Context, ev event.Event) {
	if ev.LeftMemberID == 0 {
		return
	}
	if err := s.users.Deactivate(ctx, ev.LeftMemberID); err != nil && !errors.Is(err, userdomain.ErrUserNotFound) {
		s.log.Warn("deactivate on departure failed",
			zap.Int64("user_id", ev.LeftMemberID),
			zap.Error(err),
		)
	}
}

func identityOf(msg *tgbotapi.Message) userdomain.Identity {
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	return userdomain.Identity{
		ID:          msg.From.ID,
		Username:    msg.From.UserName,
		DisplayName: name,
	}
}

var Module = fx.Module("ingest",
	fx.Provide(NewService),
)
