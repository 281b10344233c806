package leaderboard

import (
	"github.com/chatrank/chatrank/internal/config"
	"github.com/chatrank/chatrank/internal/leaderboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("leaderboard.service",
	fx.Provide(
		ProvideConfig,
		service.NewService,
	),
)

func ProvideConfig(cfg config.Config) service.Config {
	return service.Config{
		DefaultLimit: cfg.LeaderboardLimit,
		CacheTTL:     cfg.LeaderboardCacheTTL,
	}
}
