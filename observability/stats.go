package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const AppStatsName = "xrbtree/app"

var (
	once sync.Once
)

type appStats struct {
	ctx        context.Context
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
}

// observing is false once the app context is done.
func (stats *appStats) observing() bool {
	return stats.ctx.Err() == nil
}

func appStatsName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString(AppStatsName)
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats registers the process instruments on the global meter
// provider once. They stop reporting after ctx is done.
func InitAppStats(ctx context.Context, name string) {
	once.Do(func() {
		name = appStatsName(name)
		meter := otel.Meter(
			name,
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		stats := &appStats{ctx: ctx}
		stats.goroutines = lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				if stats.observing() {
					ob.Observe(int64(runtime.NumGoroutine()))
				}
				return nil
			}),
		))
		stats.processes = lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription(`The application processes' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				if stats.observing() {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
				}
				return nil
			}),
		))
		_ = otelruntime.Start()
	})
}
