package log

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// slogLogger keeps its attributes on the handler, so With never mutates the
// parent and loggers are safe to share.
type slogLogger struct {
	h          slog.Handler
	errorLinks int
}

func newSlog(opts Options) (Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: true}

	var h slog.Handler = slog.NewTextHandler(w, ho)
	if opts.JSONFormat {
		h = slog.NewJSONHandler(w, ho)
	}

	base := []slog.Attr{slog.String("app", opts.App)}
	if opts.Version != "" {
		base = append(base, slog.String("version", opts.Version))
	}
	return &slogLogger{
		h:          traceHandler{h.WithAttrs(base)},
		errorLinks: opts.ErrorLinks,
	}, nil
}

// kvAttrs turns alternating key/value arguments into attributes the same
// way slog.Logger does.
func kvAttrs(kv []any) []slog.Attr {
	var r slog.Record
	r.Add(kv...)
	out := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		out = append(out, a)
		return true
	})
	return out
}

func (s *slogLogger) With(kv ...any) Logger {
	return &slogLogger{h: s.h.WithAttrs(kvAttrs(kv)), errorLinks: s.errorLinks}
}

func (s *slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelDebug, msg, kv)
}

func (s *slogLogger) Info(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelInfo, msg, kv)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelWarn, msg, kv)
}

func (s *slogLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	if err != nil {
		kv = append(kv, "err", err.Error(), "error_type", errorType(err))
		if s.errorLinks > 0 {
			kv = append(kv, "error_links", errorLinks(err, s.errorLinks))
		}
	}
	s.emit(ctx, slog.LevelError, msg, kv)
}

func (s *slogLogger) Sync() error { return nil }

func (s *slogLogger) emit(ctx context.Context, lvl slog.Level, msg string, kv []any) {
	if !s.h.Enabled(ctx, lvl) {
		return
	}
	// caller of Debug/Info/Warn/Error
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	r.Add(kv...)
	_ = s.h.Handle(ctx, r)
}

// traceHandler adds trace_id and span_id from the active span.
type traceHandler struct{ slog.Handler }

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

// errorLinks walks the unwrap chain and reports each error that knows where
// it was created. The outermost error is always included.
func errorLinks(err error, max int) []map[string]any {
	var links []map[string]any
	for depth, e := 0, err; e != nil && depth < max; depth, e = depth+1, errors.Unwrap(e) {
		link := map[string]any{"msg": e.Error()}
		if pc := positionOf(e); pc != 0 {
			fr, _ := runtime.CallersFrames([]uintptr{pc}).Next()
			link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
		} else if depth > 0 {
			continue
		}
		links = append(links, link)
	}
	return links
}

// positionOf reads the position recorded by internal/xerrors.
func positionOf(e error) uintptr {
	switch x := e.(type) {
	case interface{ PC() uintptr }:
		return x.PC()
	case interface{ StackPCs() []uintptr }:
		if pcs := x.StackPCs(); len(pcs) > 0 {
			return pcs[0]
		}
	}
	return 0
}

// errorType names the first error in the chain that is not a plain wrapper.
func errorType(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		t := reflect.TypeOf(e)
		u := t
		for u.Kind() == reflect.Pointer {
			u = u.Elem()
		}
		if strings.HasSuffix(u.PkgPath(), "/internal/xerrors") || (u.PkgPath() == "fmt" && u.Name() == "wrapError") {
			continue
		}
		return t.String()
	}
	return reflect.TypeOf(err).String()
}
