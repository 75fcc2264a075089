package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/kvcache"
)

func TestSlogLoggerSortedAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug})
	l := Logger{L: stdslog.New(h)}

	l.Error("failed", kvcache.Fields{"op": "set", "key": "k"})

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, `msg=failed`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Index(out, "key=k") > strings.Index(out, "op=set") {
		t.Fatalf("attrs not sorted: %s", out)
	}
}

func TestSlogLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelWarn})
	l := Logger{L: stdslog.New(h)}

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}
	l.Warn("shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn not logged: %s", buf.String())
	}
}
