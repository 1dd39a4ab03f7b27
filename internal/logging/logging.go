// Package logging installs the process-wide slog handler for the notes
// binaries.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

type Options struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level  string
	Pretty bool
	// DevLogPath, when set, also receives every record at debug level.
	DevLogPath string
}

// FromEnv reads NOTES_DEBUG_LEVEL, NOTES_LOG_PRETTY and DEV.
func FromEnv() Options {
	pretty := strings.TrimSpace(os.Getenv("NOTES_LOG_PRETTY"))
	opts := Options{
		Level:  os.Getenv("NOTES_DEBUG_LEVEL"),
		Pretty: pretty == "1" || strings.EqualFold(pretty, "true"),
	}
	if strings.TrimSpace(os.Getenv("DEV")) != "" {
		opts.DevLogPath = "dev.log"
	}
	return opts
}

// Setup builds the handler and makes it the default logger. The returned
// func closes the dev log, if one was opened.
func Setup(w io.Writer, opts Options) func() {
	level := ParseLevel(opts.Level)
	var console slog.Handler
	if opts.Pretty {
		console = newPrettyHandler(w, level)
	} else {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	if opts.DevLogPath == "" {
		slog.SetDefault(slog.New(console))
		return func() {}
	}
	file, err := os.Create(opts.DevLogPath)
	if err != nil {
		slog.SetDefault(slog.New(console))
		slog.Error("open log file", "path", opts.DevLogPath, "err", err)
		return func() {}
	}
	_, _ = fmt.Fprintf(file, "=== notes dev log start %s ===\n", time.Now().Format(time.RFC3339))
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(&teeHandler{handlers: []slog.Handler{console, fileHandler}}))
	return func() { _ = file.Close() }
}

func ParseLevel(raw string) slog.Leveler {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
	return level
}

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		out = append(out, h.WithGroup(name))
	}
	return &teeHandler{handlers: out}
}

// prettyHandler prints the message on one line and each attribute indented
// below it, for reading logs in a terminal.
type prettyHandler struct {
	w      io.Writer
	level  slog.Leveler
	color  bool
	attrs  []slog.Attr
	prefix string
}

func newPrettyHandler(w io.Writer, level slog.Leveler) *prettyHandler {
	return &prettyHandler{w: w, level: level, color: isTerminal(w)}
}

func (h *prettyHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level, h.color))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteByte('\n')
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			writeAttr(b, prefix+a.Key+".", child)
		}
		return
	}
	b.WriteString("  ")
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteString(": ")
	b.WriteString(v.String())
	b.WriteByte('\n')
}

const (
	colorReset = "\x1b[0m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

func levelLabel(level slog.Level, color bool) string {
	label := level.String()
	if !color {
		return label
	}
	switch {
	case level <= slog.LevelDebug:
		return colorDebug + label + colorReset
	case level < slog.LevelWarn:
		return colorInfo + label + colorReset
	case level < slog.LevelError:
		return colorWarn + label + colorReset
	default:
		return colorError + label + colorReset
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
