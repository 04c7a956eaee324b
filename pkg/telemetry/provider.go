package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider owns the SDK providers installed by Setup.
type Provider struct {
	reader *sdkmetric.ManualReader
	meters *sdkmetric.MeterProvider
	traces *sdktrace.TracerProvider
}

// Setup installs SDK meter and tracer providers as the otel globals and
// re-creates the instruments. Extra span processors (exporters) are optional.
func Setup(serviceName, serviceVersion string, processors ...sdktrace.SpanProcessor) *Provider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	)

	reader := sdkmetric.NewManualReader()
	meters := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	traces := sdktrace.NewTracerProvider(opts...)

	otel.SetMeterProvider(meters)
	otel.SetTracerProvider(traces)
	Init()

	return &Provider{reader: reader, meters: meters, traces: traces}
}

// Collect returns the metrics recorded so far.
func (p *Provider) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return rm, fmt.Errorf("collecting metrics: %w", err)
	}
	return rm, nil
}

// Summary writes one line per counter with its total, sorted by name.
func (p *Provider) Summary(ctx context.Context, w io.Writer) error {
	rm, err := p.Collect(ctx)
	if err != nil {
		return err
	}

	totals := Totals(rm)
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "  %s: %d\n", name, totals[name]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.meters.Shutdown(ctx), p.traces.Shutdown(ctx))
}

// Totals sums every int64 counter in rm across attribute sets.
func Totals(rm metricdata.ResourceMetrics) map[string]int64 {
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}
