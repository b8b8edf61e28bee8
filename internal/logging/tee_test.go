package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected a single sink to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsSinkLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoSink := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugSink := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newTeeHandler(infoSink, debugSink)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee to accept debug when one sink does")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Fatalf("info sink received debug record: %s", infoBuf.String())
	}
	if !bytes.Contains(debugBuf.Bytes(), []byte("debug only")) {
		t.Fatal("debug sink missed the record")
	}
}

func TestTeeLoggerCopiesAttrsAndGroups(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	logger := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil))

	logger.With(String(FieldComponent, "batch")).WithGroup("release").Info("published", String("format", "MP3_V0"))

	for name, buf := range map[string]*bytes.Buffer{"base": &baseBuf, "tee": &teeBuf} {
		out := buf.Bytes()
		if !bytes.Contains(out, []byte(`"component":"batch"`)) {
			t.Fatalf("%s: missing component in %s", name, out)
		}
		if !bytes.Contains(out, []byte(`"release":{"format":"MP3_V0"}`)) {
			t.Fatalf("%s: missing grouped attr in %s", name, out)
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&buf, nil)).Info("no base")
	if buf.Len() == 0 {
		t.Fatal("expected output from tee sink")
	}
}
