package metadata

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const meterName = "github.com/odatakit/odatakit/internal/metadata"

// cacheMetrics records cache activity through OpenTelemetry
type cacheMetrics struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	loadErrors   metric.Int64Counter
	loadDuration metric.Float64Histogram
}

func newCacheMetrics(provider metric.MeterProvider, logger *zap.Logger) *cacheMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	m := &cacheMetrics{}
	var err error

	if m.hits, err = meter.Int64Counter("odatakit.metadata.cache.hits",
		metric.WithDescription("Metadata lookups served from the cache")); err != nil {
		logger.Warn("Failed to create metric", zap.String("metric", "cache.hits"), zap.Error(err))
		m.hits = noop.Int64Counter{}
	}
	if m.misses, err = meter.Int64Counter("odatakit.metadata.cache.misses",
		metric.WithDescription("Metadata lookups that read and parsed a file")); err != nil {
		logger.Warn("Failed to create metric", zap.String("metric", "cache.misses"), zap.Error(err))
		m.misses = noop.Int64Counter{}
	}
	if m.loadErrors, err = meter.Int64Counter("odatakit.metadata.load.errors",
		metric.WithDescription("Metadata files that could not be read or parsed")); err != nil {
		logger.Warn("Failed to create metric", zap.String("metric", "load.errors"), zap.Error(err))
		m.loadErrors = noop.Int64Counter{}
	}
	if m.loadDuration, err = meter.Float64Histogram("odatakit.metadata.load.duration",
		metric.WithDescription("Time spent reading and parsing a metadata file"),
		metric.WithUnit("ms")); err != nil {
		logger.Warn("Failed to create metric", zap.String("metric", "load.duration"), zap.Error(err))
		m.loadDuration = noop.Float64Histogram{}
	}

	return m
}

func (m *cacheMetrics) hit(path string) {
	m.hits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("path", path)))
}

func (m *cacheMetrics) miss(path string) {
	m.misses.Add(context.Background(), 1, metric.WithAttributes(attribute.String("path", path)))
}

func (m *cacheMetrics) loaded(path string, took time.Duration, err error) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("path", path), attribute.Bool("error", err != nil))
	m.loadDuration.Record(ctx, float64(took.Microseconds())/1000, attrs)
	if err != nil {
		m.loadErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
	}
}
