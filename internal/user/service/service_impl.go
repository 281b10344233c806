package service

import (
	"context"
	"strings"

	"github.com/chatrank/chatrank/internal/clock"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	"github.com/chatrank/chatrank/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	users repository.Repository[userdomain.User]
}

func NewService(p ServiceParam) userdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		clock: p.Clock,
		users: repository.ProvideStore[userdomain.User](p.DB),
	}
}

func (s *Service) Upsert(ctx context.Context, identity userdomain.Identity) (*userdomain.User, error) {
	if identity.ID == 0 {
		return nil, userdomain.ErrInvalidIdentity
	}

	now := s.clock.Now()
	record := &userdomain.User{
		ID:          identity.ID,
		Username:    strings.TrimSpace(identity.Username),
		DisplayName: displayName(identity),
		FirstSeen:   now,
		LastSeen:    now,
		Active:      true,
	}

	// One durable write per call: insert on first sight, otherwise refresh
	// the mutable identity fields. FirstSeen is only set by the insert.
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "display_name", "last_seen", "active",
		}),
	}).Create(record).Error
	if err != nil {
		return nil, err
	}

	return s.users.FindOne(ctx, &userdomain.User{ID: identity.ID})
}

func (s *Service) Get(ctx context.Context, id int64) (*userdomain.User, error) {
	if id == 0 {
		return nil, userdomain.ErrInvalidIdentity
	}
	record, err := s.users.FindOne(ctx, &userdomain.User{ID: id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return record, nil
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id == 0 {
		return userdomain.ErrInvalidIdentity
	}
	result := s.db.WithContext(ctx).
		Model(&userdomain.User{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return userdomain.ErrUserNotFound
	}
	s.log.Info("user deactivated", zap.Int64("user_id", id))
	return nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx, &userdomain.User{})
}

func displayName(identity userdomain.Identity) string {
	name := strings.TrimSpace(identity.DisplayName)
	if name != "" {
		return name
	}
	if username := strings.TrimSpace(identity.Username); username != "" {
		return username
	}
	return "Unknown"
}
