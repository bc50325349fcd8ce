package observability

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	once sync.Once
)

// hostStats records the process side metrics next to the rbtree stats,
// so the rotation and fixup counters can be read against the load.
type hostStats struct {
	ctx              context.Context
	shutdownCallback func(ctx context.Context) error
	goroutines       metric.Int64ObservableUpDownCounter
	processes        metric.Int64ObservableUpDownCounter
	memoryRSS        metric.Int64ObservableGauge
}

func (stats *hostStats) waitForShutdown() {
	if stats == nil || stats.shutdownCallback == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		_ = stats.shutdownCallback(context.Background())
	}()
}

func hostStatsMeterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString("xboot/xrbtree/host")
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitHostStats starts the go runtime instrumentation on the global meter
// provider only once. The shutdown callback, normally the one returned
// by the exporter constructors, runs after the ctx is done.
func InitHostStats(ctx context.Context, name string, shutdownCallback func(ctx context.Context) error) error {
	var err error
	once.Do(func() {
		meter := otel.Meter(
			hostStatsMeterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		stats := &hostStats{
			ctx:              ctx,
			shutdownCallback: shutdownCallback,
			goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"host.core.goroutines",
				metric.WithDescription(`The host goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
			processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
				"host.core.processes",
				metric.WithDescription(`The host processes' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.GOMAXPROCS(0)))
					return nil
				}),
			)),
			memoryRSS: lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
				"host.core.memory.rss",
				metric.WithDescription(`The host resident set size in bytes.`),
				metric.WithUnit("By"),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
					if err != nil {
						return err
					}
					mem, err := proc.MemoryInfoWithContext(ctx)
					if err != nil {
						return err
					}
					ob.Observe(int64(mem.RSS))
					return nil
				}),
			)),
		}
		err = otelruntime.Start()
		stats.waitForShutdown()
	})
	return err
}
