package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/lib/xlog"
	"github.com/benz9527/xrbtree/observability"
)

// appOpts are the flags shared by every command.
type appOpts struct {
	name     string
	logLevel string
	logJSON  bool
	metrics  string
	logOut   io.Writer
}

func (opts *appOpts) register(f *flag.FlagSet, name string, logOut io.Writer) {
	opts.name = name
	opts.logOut = logOut
	f.StringVar(&opts.logLevel, "log", "info", "log level, debug|info|warn|error")
	f.BoolVar(&opts.logJSON, "logjson", false, "log in JSON instead of plain text")
	f.StringVar(&opts.metrics, "metrics", "none", "metrics exporter, stdout|prometheus|none")
}

type cliApp struct {
	ctx    context.Context
	logger xlog.XLogger
}

type cliBanner struct{}

func (cliBanner) JSON() string {
	return `{"app":"xrbtree"}`
}

func (cliBanner) PlainText() string {
	return "xrbtree: arena backed red-black tree"
}

func newXLogger(opts appOpts) xlog.XLogger {
	enc := xlog.PlainText
	if opts.logJSON {
		enc = xlog.JSON
	}
	out := xlog.WithXLoggerWriter(xlog.StdErr)
	if opts.logOut != nil {
		out = xlog.WithXLoggerOutWriter(opts.logOut)
	}
	return xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.LogLevel(strings.ToUpper(opts.logLevel))),
		xlog.WithXLoggerEncoder(enc),
		out,
		xlog.WithXLoggerContextFieldExtract("cmd"),
	)
}

func newMetricsExporter(opts appOpts, out io.Writer) (observability.ShutdownCallback, error) {
	typ, err := observability.ParseMetricsExporterType(opts.metrics)
	if err != nil {
		return nil, err
	}
	return observability.NewMetricsExporter(typ, out)
}

func registerHooks(
	lc fx.Lifecycle,
	opts appOpts,
	logger xlog.XLogger,
	shutdown observability.ShutdownCallback,
) {
	statsCtx, statsCancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			observability.InitAppStats(statsCtx, opts.name)
			logger.Banner(cliBanner{})
			logger.Debug("xrbtree started", zap.String("cmd", opts.name))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := shutdown(ctx)
			statsCancel()
			// Sync of a terminal may fail, it is not an app error.
			_ = logger.Sync()
			return err
		},
	})
}

func newApp(opts appOpts, stdout io.Writer, app *cliApp) *fx.App {
	return fx.New(
		fx.Supply(opts),
		fx.Provide(
			newXLogger,
			func(opts appOpts) (observability.ShutdownCallback, error) {
				return newMetricsExporter(opts, stdout)
			},
		),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(registerHooks),
		fx.Populate(&app.logger),
		fx.StartTimeout(10*time.Second),
		fx.StopTimeout(10*time.Second),
	)
}

// runApp starts the fx app, runs the command and stops the app.
func runApp(opts appOpts, stdout io.Writer, cmd func(app *cliApp) error) int {
	app := &cliApp{}
	fxApp := newApp(opts, stdout, app)
	if err := fxApp.Err(); err != nil {
		fmt.Fprintf(stdout, "xrbtree %s: %v\n", opts.name, err)
		return exitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fxApp.Start(ctx); err != nil {
		app.logger.ErrorStack(infra.WrapErrorStackWithMessage(err, "start"), "xrbtree start failed")
		return exitFailure
	}
	app.ctx = context.WithValue(ctx, xlog.ContextKey("cmd"), opts.name)

	err := cmd(app)
	if err != nil {
		app.logger.ErrorStackContext(app.ctx, infra.WrapErrorStack(err), "xrbtree "+opts.name+" failed",
			zap.Int("errors", len(multierr.Errors(err))),
		)
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if stopErr := fxApp.Stop(stopCtx); stopErr != nil {
		err = multierr.Append(err, stopErr)
	}
	if err != nil {
		return exitFailure
	}
	return exitOK
}
