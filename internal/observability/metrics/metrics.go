package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	ingestEvents       metric.Int64Counter
	classifierSkips    metric.Int64Counter
	duplicateEvents    metric.Int64Counter
	leaderboardQueries metric.Int64Counter
	dedupCacheHits     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "chatrank"
	}
	meter := provider.Meter(name)

	ingestEvents, err := meter.Int64Counter("chatrank_ingest_events_total")
	if err != nil {
		return nil, err
	}
	classifierSkips, err := meter.Int64Counter("chatrank_classifier_skips_total")
	if err != nil {
		return nil, err
	}
	duplicateEvents, err := meter.Int64Counter("chatrank_duplicate_events_total")
	if err != nil {
		return nil, err
	}
	leaderboardQueries, err := meter.Int64Counter("chatrank_leaderboard_queries_total")
	if err != nil {
		return nil, err
	}
	dedupCacheHits, err := meter.Int64Counter("chatrank_dedup_cache_hits_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ingestEvents:       ingestEvents,
		classifierSkips:    classifierSkips,
		duplicateEvents:    duplicateEvents,
		leaderboardQueries: leaderboardQueries,
		dedupCacheHits:     dedupCacheHits,
	}, nil
}

// RecordIngest counts one ingested event by result.
func (m *Metrics) RecordIngest(ctx context.Context, result string) {
	if m == nil || m.ingestEvents == nil {
		return
	}
	m.ingestEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordSkip counts one classifier skip by reason.
func (m *Metrics) RecordSkip(ctx context.Context, reason string) {
	if m == nil || m.classifierSkips == nil {
		return
	}
	m.classifierSkips.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordDuplicate counts one deduplicated redelivery.
func (m *Metrics) RecordDuplicate(ctx context.Context) {
	if m == nil || m.duplicateEvents == nil {
		return
	}
	m.duplicateEvents.Add(ctx, 1)
}

// RecordLeaderboardQuery counts one ranked read by period.
func (m *Metrics) RecordLeaderboardQuery(ctx context.Context, period string) {
	if m == nil || m.leaderboardQueries == nil {
		return
	}
	m.leaderboardQueries.Add(ctx, 1, metric.WithAttributes(attribute.String("period", period)))
}

// RecordDedupCacheHit counts one fast-path dedup probe hit.
func (m *Metrics) RecordDedupCacheHit(ctx context.Context) {
	if m == nil || m.dedupCacheHits == nil {
		return
	}
	m.dedupCacheHits.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp metrics protocol %q", protocol)
	}
}
