package migration

import (
	"github.com/chatrank/chatrank/internal/config"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations are postgres-only; other dialects get the
		// schema derived from the models.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&userdomain.User{},
				&scoringdomain.ActivityEvent{},
				&scoringdomain.PeriodBucket{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
