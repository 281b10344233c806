package scoring

import (
	"time"

	"github.com/chatrank/chatrank/internal/config"
	"github.com/chatrank/chatrank/internal/event"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	"github.com/chatrank/chatrank/internal/scoring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scoring.service",
	fx.Provide(
		ProvidePolicy,
		ProvideLocation,
		service.NewService,
	),
)

// ProvidePolicy builds the versioned weight table from configuration.
func ProvidePolicy(cfg config.Config) scoringdomain.Policy {
	policy := scoringdomain.DefaultPolicy()
	policy.Version = cfg.PolicyVersion
	policy.Weights[event.KindText] = cfg.PointsPerMessage
	policy.Weights[event.KindSticker] = cfg.PointsPerSticker
	return policy
}

// ProvideLocation resolves the reference timezone used to anchor period
// boundaries. Invalid names fall back to UTC rather than failing startup.
func ProvideLocation(cfg config.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
