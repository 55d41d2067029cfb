package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/xerrors"
)

func newTestLogger(t *testing.T, buf *bytes.Buffer, opts Options) Logger {
	t.Helper()
	opts.Writer = buf
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{" WARN ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_JSONBaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "sitecheck", Version: "1.2.3", JSONFormat: true})

	l.Info(context.Background(), "hello", "sections", 5)

	m := decodeLine(t, &buf)
	if m["app"] != "sitecheck" || m["version"] != "1.2.3" {
		t.Fatalf("base attrs missing: %v", m)
	}
	if m["msg"] != "hello" {
		t.Fatalf("msg = %v", m["msg"])
	}
	if m["sections"] != float64(5) {
		t.Fatalf("sections = %v", m["sections"])
	}
	src, ok := m["source"].(map[string]any)
	if !ok || !strings.HasSuffix(fmt.Sprint(src["file"]), "log_test.go") {
		t.Fatalf("source should point at the caller: %v", m["source"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "sitecheck"})
	l.Info(context.Background(), "plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Fatalf("expected logfmt output, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true, Level: slog.LevelWarn})
	l.Debug(context.Background(), "d")
	l.Info(context.Background(), "i")
	if buf.Len() != 0 {
		t.Fatalf("below-level records written: %q", buf.String())
	}
	l.Warn(context.Background(), "w")
	if buf.Len() == 0 {
		t.Fatal("warn record not written")
	}
}

func TestWith_CopyOnWrite(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(t, &buf, Options{JSONFormat: true})
	child := base.With("component", "validate")

	base.Info(context.Background(), "base")
	if strings.Contains(buf.String(), "component") {
		t.Fatalf("parent picked up child attrs: %q", buf.String())
	}
	buf.Reset()

	child.Info(context.Background(), "child")
	if m := decodeLine(t, &buf); m["component"] != "validate" {
		t.Fatalf("component = %v", m["component"])
	}
}

type testErr struct{}

func (testErr) Error() string { return "root cause" }

func TestError_ChainAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true, ErrorLinks: 4})

	err := fmt.Errorf("publish: %w", testErr{})
	l.Error(context.Background(), err, "failed")

	m := decodeLine(t, &buf)
	if m["err"] != "publish: root cause" {
		t.Fatalf("err = %v", m["err"])
	}
	if m["error_type"] != "log.testErr" {
		t.Fatalf("error_type = %v", m["error_type"])
	}
	links, ok := m["error_links"].([]any)
	if !ok || len(links) != 1 {
		t.Fatalf("error_links = %v, want only the outermost error", m["error_links"])
	}
}

func TestError_LinksCarryPositions(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true, ErrorLinks: 4})

	err := xerrors.Wrap(xerrors.New("no such bucket"), "put object")
	l.Error(context.Background(), err, "publish failed")

	m := decodeLine(t, &buf)
	links, ok := m["error_links"].([]any)
	if !ok || len(links) != 2 {
		t.Fatalf("error_links = %v", m["error_links"])
	}
	for i, raw := range links {
		link := raw.(map[string]any)
		if !strings.HasSuffix(fmt.Sprint(link["file"]), "log_test.go") {
			t.Errorf("link %d file = %v", i, link["file"])
		}
	}
	if m["error_type"] != "*errors.errorString" {
		t.Errorf("error_type = %v", m["error_type"])
	}
}

func TestError_LinksDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true})
	l.Error(context.Background(), errors.New("x"), "failed")
	if _, ok := decodeLine(t, &buf)["error_links"]; ok {
		t.Fatal("error_links should be off when ErrorLinks is 0")
	}
}

func TestError_NilError(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true})
	l.Error(context.Background(), nil, "no error")
	m := decodeLine(t, &buf)
	if _, ok := m["err"]; ok {
		t.Fatal("nil error should not add err attr")
	}
}

func TestChainLinks_RespectsMax(t *testing.T) {
	err := errors.New("a")
	for i := 0; i < 5; i++ {
		err = fmt.Errorf("wrap %d: %w", i, err)
	}
	if got := errorLinks(err, 2); len(got) != 1 {
		t.Fatalf("links = %d, want 1 (only the head has no position)", len(got))
	}
}

func TestOtelHandler_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.Info(ctx, "traced")

	m := decodeLine(t, &buf)
	if m["trace_id"] != sc.TraceID().String() || m["span_id"] != sc.SpanID().String() {
		t.Fatalf("trace attrs missing: %v", m)
	}
}

func TestContext_RoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()).(nopLogger); !ok {
		t.Fatal("FromContext without a logger should return Nop")
	}
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{JSONFormat: true})
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("FromContext did not return the stored logger")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.With("k", "v").Info(context.Background(), "ignored")
	l.Error(context.Background(), errors.New("x"), "ignored")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
