// Package zap adapts a *zap.Logger to kvcache.Logger.
package zap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/kvcache"
)

var _ kvcache.Logger = ZapLogger{}

// ZapLogger forwards to L. Fields are only converted when L has the level
// enabled, so a production logger pays nothing for kvcache's debug lines.
type ZapLogger struct{ L *zap.Logger }

// New names l "kvcache". A nil l discards everything.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		return ZapLogger{L: zap.NewNop()}
	}
	return ZapLogger{L: l.Named("kvcache")}
}

func (z ZapLogger) Debug(msg string, f kvcache.Fields) { z.log(zapcore.DebugLevel, msg, f) }
func (z ZapLogger) Info(msg string, f kvcache.Fields)  { z.log(zapcore.InfoLevel, msg, f) }
func (z ZapLogger) Warn(msg string, f kvcache.Fields)  { z.log(zapcore.WarnLevel, msg, f) }
func (z ZapLogger) Error(msg string, f kvcache.Fields) { z.log(zapcore.ErrorLevel, msg, f) }

func (z ZapLogger) log(lvl zapcore.Level, msg string, f kvcache.Fields) {
	if ce := z.L.Check(lvl, msg); ce != nil {
		ce.Write(zf(f)...)
	}
}

func zf(f kvcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		switch v := v.(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case string:
			out = append(out, zap.String(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
