// Package logging builds the multi-sink log/slog setup of §6: a plain-text
// console handler plus zero or more file sinks, each gated at
// its own verbosity level, generalizing the teacher's single-sink
// util.InitSlog to the spec's per-sink {critical, error, warning, info,
// debug} levels.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/qcount/quantityer/qerr"
)

// Level is one of the spec's five verbosity levels, ordered so a sink at
// Level L emits records at L and every more-severe level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

// slogLevel maps a Level onto the nearest slog.Level. slog has no built-in
// "critical" above Error, so it is represented as Error+4, one step above
// slog's own level granularity.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelCritical:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses one of "critical", "error", "warning", "info", "debug"
// (case-insensitive), the verbosity vocabulary of §6.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, &qerr.ConfigError{Option: "--log-file", Msg: fmt.Sprintf("unknown verbosity level %q", s)}
	}
}

// Sink is one file-backed log destination at a given minimum level.
type Sink struct {
	Level Level
	Path  string
}

// fanoutHandler dispatches each record to every child handler whose own
// level admits it, the way a single teacher sink fans out console lines;
// here generalized to N independently leveled sinks.
type fanoutHandler struct {
	handlers []slog.Handler
}

func multiHandler(handlers []slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h.handlers {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, child := range h.handlers {
		if !child.Enabled(ctx, record.Level) {
			continue
		}
		if err := child.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, child := range h.handlers {
		next[i] = child.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, child := range h.handlers {
		next[i] = child.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// Setup builds the process-wide *slog.Logger: a console text handler at
// consoleLevel (writing through go-colorable when go-isatty reports stderr
// is a terminal, straight to stderr otherwise; the handler itself emits no
// ANSI color codes), plus one text handler per sink. The returned
// closer must be called to flush and close any opened sink files.
func Setup(consoleLevel Level, sinks []Sink) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = colorable.NewColorableStderr()
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(out, &slog.HandlerOptions{Level: consoleLevel.slogLevel()}),
	}

	var files []*os.File
	for _, sink := range sinks {
		f, err := os.OpenFile(sink.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			closeAll(files)
			return nil, nil, &qerr.FileError{Path: sink.Path, Err: err}
		}
		files = append(files, f)
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: sink.Level.slogLevel()}))
	}

	logger := slog.New(multiHandler(handlers))
	return logger, closerFunc(func() error { return closeAll(files) }), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func closeAll(files []*os.File) error {
	var firstErr error
	for _, f := range files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
