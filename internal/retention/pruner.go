// Package retention trims old ledger rows on a fixed interval.
package retention

import (
	"context"
	"time"

	"github.com/chatrank/chatrank/internal/clock"
	"github.com/chatrank/chatrank/internal/config"
	scoringdomain "github.com/chatrank/chatrank/internal/scoring/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Retention time.Duration
	Interval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = 30 * 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	return c
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Scoring scoringdomain.Service
	Config  Config `optional:"true"`
}

type Pruner struct {
	log     *zap.Logger
	clock   clock.Clock
	scoring scoringdomain.Service
	cfg     Config
}

func NewPruner(p Params) *Pruner {
	return &Pruner{
		log:     p.Log.Named("retention"),
		clock:   p.Clock,
		scoring: p.Scoring,
		cfg:     p.Config.withDefaults(),
	}
}

func (p *Pruner) RunForever(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := p.RunOnce(ctx); err != nil {
			p.log.Warn("ledger prune failed", zap.Error(err))
		}
	}
}

func (p *Pruner) RunOnce(ctx context.Context) error {
	cutoff := p.clock.Now().Add(-p.cfg.Retention)

	pruned, err := p.scoring.PruneLedger(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		p.log.Info("ledger pruned",
			zap.Int64("rows", pruned),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Retention: cfg.LedgerRetention,
		Interval:  cfg.PruneInterval,
	}
}

func register(lc fx.Lifecycle, pruner *Pruner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				pruner.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

var Module = fx.Module("retention",
	fx.Provide(ProvideConfig, NewPruner),
	fx.Invoke(register),
)
