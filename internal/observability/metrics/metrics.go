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

// Metrics exposes pricing pipeline instruments.
type Metrics struct {
	vendorFetches       metric.Int64Counter
	rateRefreshes       metric.Int64Counter
	alertNotifications  metric.Int64Counter
	inventoryDeductions metric.Int64Counter
	priceComputations   metric.Int64Counter
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "karat"
	}
	meter := provider.Meter(name)

	vendorFetches, err := meter.Int64Counter("karat_vendor_fetch_total")
	if err != nil {
		return nil, err
	}
	rateRefreshes, err := meter.Int64Counter("karat_rate_refresh_total")
	if err != nil {
		return nil, err
	}
	alertNotifications, err := meter.Int64Counter("karat_alert_notifications_total")
	if err != nil {
		return nil, err
	}
	inventoryDeductions, err := meter.Int64Counter("karat_inventory_deductions_total")
	if err != nil {
		return nil, err
	}
	priceComputations, err := meter.Int64Counter("karat_price_computations_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		vendorFetches:       vendorFetches,
		rateRefreshes:       rateRefreshes,
		alertNotifications:  alertNotifications,
		inventoryDeductions: inventoryDeductions,
		priceComputations:   priceComputations,
	}, nil
}

// NewNoop returns instruments bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordVendorFetch counts vendor rate fetches by outcome.
func (m *Metrics) RecordVendorFetch(ctx context.Context, vendor, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("vendor", strings.TrimSpace(vendor)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.vendorFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateRefresh counts aggregation cycles by outcome.
func (m *Metrics) RecordRateRefresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.rateRefreshes.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

// RecordAlertNotification counts price drop notifications by outcome.
func (m *Metrics) RecordAlertNotification(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.alertNotifications.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

// RecordInventoryDeduction counts material deductions.
func (m *Metrics) RecordInventoryDeduction(ctx context.Context, material string) {
	if m == nil {
		return
	}
	m.inventoryDeductions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("material", material))...))
}

// RecordPriceComputation counts price computations by product kind.
func (m *Metrics) RecordPriceComputation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.priceComputations.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("product_kind", kind))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"vendor":       {},
	"outcome":      {},
	"material":     {},
	"product_kind": {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
