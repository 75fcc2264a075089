// Package logrus adapts a *logrus.Entry to kvcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/kvcache"
)

var _ kvcache.Logger = LogrusLogger{}

// LogrusLogger forwards to E. The "err" field kvcache attaches to failures
// is moved to logrus.ErrorKey so formatters and hooks see it as the entry's
// error.
type LogrusLogger struct{ E *logrus.Entry }

// New tags entries with component=kvcache. A nil e uses the standard logger.
func New(e *logrus.Entry) LogrusLogger {
	if e == nil {
		e = logrus.NewEntry(logrus.StandardLogger())
	}
	return LogrusLogger{E: e.WithField("component", "kvcache")}
}

func (l LogrusLogger) Debug(msg string, f kvcache.Fields) { l.log(logrus.DebugLevel, msg, f) }
func (l LogrusLogger) Info(msg string, f kvcache.Fields)  { l.log(logrus.InfoLevel, msg, f) }
func (l LogrusLogger) Warn(msg string, f kvcache.Fields)  { l.log(logrus.WarnLevel, msg, f) }
func (l LogrusLogger) Error(msg string, f kvcache.Fields) { l.log(logrus.ErrorLevel, msg, f) }

func (l LogrusLogger) log(lvl logrus.Level, msg string, f kvcache.Fields) {
	if !l.E.Logger.IsLevelEnabled(lvl) {
		return
	}
	e := l.E
	if len(f) > 0 {
		data := make(logrus.Fields, len(f))
		for k, v := range f {
			if err, ok := v.(error); ok && k == "err" {
				data[logrus.ErrorKey] = err
				continue
			}
			data[k] = v
		}
		e = e.WithFields(data)
	}
	e.Log(lvl, msg)
}
