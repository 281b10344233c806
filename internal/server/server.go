// Package server exposes the read-side HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/chatrank/chatrank/internal/config"
	leaderboarddomain "github.com/chatrank/chatrank/internal/leaderboard/domain"
	"github.com/chatrank/chatrank/internal/observability"
	obsmiddleware "github.com/chatrank/chatrank/internal/observability/logger"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	userdomain "github.com/chatrank/chatrank/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	boardSvc   leaderboarddomain.Service
	scoringSvc scoringdomain.Service
	userSvc    userdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	BoardSvc   leaderboarddomain.Service
	ScoringSvc scoringdomain.Service
	UserSvc    userdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		boardSvc:   p.BoardSvc,
		scoringSvc: p.ScoringSvc,
		userSvc:    p.UserSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	v1.GET("/leaderboard", s.GetLeaderboard)
	v1.GET("/users/:id/stats", s.GetUserStats)
	v1.GET("/events", s.ListEvents)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
