package xlog

import (
	"fmt"
	"time"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var _ fxevent.Logger = (*FxXLogger)(nil)

// FxXLogger prints the fx app events as the "fx" component.
// Only the events of a plain supply/provide/invoke app with
// lifecycle hooks get their own line format.
type FxXLogger struct {
	logger XLogger
}

func hookFields(function, caller string, cost time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("function", function),
		zap.String("caller", caller),
	}
	if cost > 0 {
		fields = append(fields, zap.Duration("cost", cost))
	}
	return fields
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.Supplied:
		if e.Err != nil {
			l.logger.Error(e.Err, "supply failed", zap.String("type", e.TypeName))
			return
		}
		l.logger.Debug("supplied", zap.String("type", e.TypeName))
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Error(e.Err, "provide failed", zap.String("constructor", e.ConstructorName))
			return
		}
		l.logger.Debug("provided",
			zap.String("constructor", e.ConstructorName),
			zap.Strings("types", e.OutputTypeNames),
		)
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "invoke failed",
				zap.String("function", e.FunctionName),
				zap.String("trace", e.Trace),
			)
			return
		}
		l.logger.Debug("invoked", zap.String("function", e.FunctionName))
	case *fxevent.OnStartExecuting:
		l.logger.Debug("OnStart hook executing", hookFields(e.FunctionName, e.CallerName, 0)...)
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Error(e.Err, "OnStart hook failed", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
			return
		}
		l.logger.Debug("OnStart hook executed", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
	case *fxevent.OnStopExecuting:
		l.logger.Debug("OnStop hook executing", hookFields(e.FunctionName, e.CallerName, 0)...)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Error(e.Err, "OnStop hook failed", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
			return
		}
		l.logger.Debug("OnStop hook executed", hookFields(e.FunctionName, e.CallerName, e.Runtime)...)
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.logger.Error(e.Err, "logger init failed")
			return
		}
		l.logger.Debug("logger initialized", zap.String("constructor", e.ConstructorName))
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "start failed")
			return
		}
		l.logger.Debug("started")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "stop failed")
			return
		}
		l.logger.Debug("stopped")
	case *fxevent.RollingBack:
		l.logger.Warn("start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.logger.Error(e.Err, "rollback failed")
		}
	default:
		l.logger.Debug("event", zap.String("type", fmt.Sprintf("%T", event)))
	}
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{logger: componentLogger(logger, "fx")}
}
