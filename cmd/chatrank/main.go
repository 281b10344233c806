package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/chatrank/chatrank/internal/clock"
	"github.com/chatrank/chatrank/internal/config"
	"github.com/chatrank/chatrank/internal/dedup"
	"github.com/chatrank/chatrank/internal/ingest"
	"github.com/chatrank/chatrank/internal/leaderboard"
	"github.com/chatrank/chatrank/internal/migration"
	"github.com/chatrank/chatrank/internal/observability"
	"github.com/chatrank/chatrank/internal/retention"
	"github.com/chatrank/chatrank/internal/scoring"
	"github.com/chatrank/chatrank/internal/server"
	"github.com/chatrank/chatrank/internal/telegram"
	"github.com/chatrank/chatrank/internal/user"
	"github.com/chatrank/chatrank/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		user.Module,
		scoring.Module,
		leaderboard.Module,
		dedup.Module,
		ingest.Module,
		retention.Module,

		// Surfaces
		telegram.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
