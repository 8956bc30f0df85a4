package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ xLogCore = (*commonCore)(nil)

type commonCore struct {
	lvlEnabler zapcore.LevelEnabler
	lvlEnc     zapcore.LevelEncoder
	tsEnc      zapcore.TimeEncoder
	ws         zapcore.WriteSyncer
	enc        func(cfg zapcore.EncoderConfig) zapcore.Encoder
	core       zapcore.Core
}

func (cc *commonCore) timeEncoder() zapcore.TimeEncoder                            { return cc.tsEnc }
func (cc *commonCore) levelEncoder() zapcore.LevelEncoder                          { return cc.lvlEnc }
func (cc *commonCore) writeSyncer() zapcore.WriteSyncer                            { return cc.ws }
func (cc *commonCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder { return cc.enc }
func (cc *commonCore) Enabled(lvl zapcore.Level) bool {
	return cc.lvlEnabler.Enabled(lvl)
}

func (cc *commonCore) With(fields []zap.Field) zapcore.Core {
	return &commonCore{
		lvlEnabler: cc.lvlEnabler,
		lvlEnc:     cc.lvlEnc,
		tsEnc:      cc.tsEnc,
		ws:         cc.ws,
		enc:        cc.enc,
		core:       cc.core.With(fields),
	}
}

func (cc *commonCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return cc.core.Check(ent, ce)
}

func (cc *commonCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	return cc.core.Write(ent, fields)
}

func (cc *commonCore) Sync() error {
	return cc.core.Sync()
}

// WrapCore rebuilds the core by another encoder config, sharing the
// writer and the level enabler of the parent core.
func WrapCore(core zapcore.Core, cfg *zapcore.EncoderConfig) (zapcore.Core, error) {
	if cfg == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core config is empty")
	}
	xc, ok := core.(xLogCore)
	if !ok || xc == nil {
		return nil, infra.NewErrorStack("[XLogger] core is not a xlog core")
	}
	_cfg := *cfg
	_cfg.EncodeLevel = xc.levelEncoder()
	_cfg.EncodeTime = xc.timeEncoder()

	cc := &commonCore{
		ws:  xc.writeSyncer(),
		enc: xc.outEncoder(),
		lvlEnabler: zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return xc.Enabled(l)
		}),
		lvlEnc: xc.levelEncoder(),
		tsEnc:  xc.timeEncoder(),
	}
	cc.core = zapcore.NewCore(xc.outEncoder()(_cfg), xc.writeSyncer(), cc.lvlEnabler)
	return cc, nil
}

var componentCoreEncoderCfg = &zapcore.EncoderConfig{
	MessageKey:    "msg",
	LevelKey:      "lvl",
	TimeKey:       "ts",
	CallerKey:     coreKeyIgnored,
	EncodeCaller:  zapcore.ShortCallerEncoder,
	FunctionKey:   coreKeyIgnored,
	NameKey:       "component",
	EncodeName:    zapcore.FullNameEncoder,
	StacktraceKey: coreKeyIgnored,
}

// componentLogger derives a named child whose core drops the caller.
// The child follows the parent's level changes.
func componentLogger(parent XLogger, name string) XLogger {
	l := &xLogger{}
	if px, ok := parent.(*xLogger); ok {
		l.dynamicLevelEnabler = px.dynamicLevelEnabler
		l.ctxFields = px.ctxFields
		l.writer, l.ws, l.encoder = px.writer, px.ws, px.encoder
	} else {
		l.dynamicLevelEnabler = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l.logger.Store(parent.
		zap().
		Named(name).
		WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			if core == nil {
				panic("[XLogger] core is nil")
			}
			cc, err := WrapCore(core, componentCoreEncoderCfg)
			if err != nil {
				panic(err)
			}
			return cc
		})),
	)
	return l
}
