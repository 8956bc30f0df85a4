package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"

	"github.com/benz9527/xrbtree/lib/infra"
)

type MetricsExporterType string

const (
	NoneMetricsExporter       MetricsExporterType = "none"
	StdOutMetricsExporter     MetricsExporterType = "stdout"
	PrometheusMetricsExporter MetricsExporterType = "prometheus"
)

func ParseMetricsExporterType(typ string) (MetricsExporterType, error) {
	switch t := MetricsExporterType(strings.ToLower(strings.TrimSpace(typ))); t {
	case NoneMetricsExporter, StdOutMetricsExporter, PrometheusMetricsExporter:
		return t, nil
	case "":
		return NoneMetricsExporter, nil
	default:
	}
	return NoneMetricsExporter, infra.NewErrorStack("[observability] unknown metrics exporter " + typ)
}

// ShutdownCallback flushes the pending metrics and stops the exporter.
type ShutdownCallback func(ctx context.Context) error

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (ShutdownCallback, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	callback := mp.Shutdown
	otel.SetMeterProvider(mp)
	return callback, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
// The registry is dumped in the text exposition format on shutdown.
func newPrometheusMetricsExporter(out io.Writer) (ShutdownCallback, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	callback := func(ctx context.Context) error {
		families, err := registry.Gather()
		for _, mf := range families {
			if _, _err := expfmt.MetricFamilyToText(out, mf); _err != nil {
				err = multierr.Append(err, _err)
				break
			}
		}
		return multierr.Append(err, mp.Shutdown(ctx))
	}
	otel.SetMeterProvider(mp)
	return callback, nil
}

// NewMetricsExporter installs the global meter provider of typ.
// The none type keeps the otel no-op provider.
func NewMetricsExporter(typ MetricsExporterType, out io.Writer) (ShutdownCallback, error) {
	if out == nil {
		out = os.Stdout
	}
	switch typ {
	case StdOutMetricsExporter:
		return newConsoleMetricsExporter(
			time.Minute,
			10*time.Second,
			stdoutmetric.WithWriter(out),
			stdoutmetric.WithPrettyPrint(),
		)
	case PrometheusMetricsExporter:
		return newPrometheusMetricsExporter(out)
	case NoneMetricsExporter:
		return func(ctx context.Context) error { return nil }, nil
	default:
	}
	return nil, infra.NewErrorStack("[observability] unknown metrics exporter " + string(typ))
}
