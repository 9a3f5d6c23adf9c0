// Package logger configures the process-wide structured logger.
//
// It keeps the teacher's shape (a package-level Setup that picks level and
// destination once at startup, plus per-file helpers for discovery/hashing
// skips) but backs it with log/slog instead of a hand-rolled level+io.
// MultiWriter logger: colored human output via github.com/lmittmann/tint
// when stderr is a terminal, plain JSON otherwise, so piping cerebro's
// output to a log aggregator gets structured records for free.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup installs the process-wide default slog logger.
//
// verbose enables debug-level output. logFile, if non-empty, additionally
// writes to that path (opened append, created if missing); the file
// stream always gets the plain JSON handler since it's read by tooling,
// not a human.
func Setup(verbose bool, logFile string) (io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handlers = append(handlers, tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	var closer io.Closer = nopCloser{}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f
	}

	slog.SetDefault(slog.New(fanoutHandler{handlers}))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LogFileSkip records that a discovery or hashing stage dropped one entry,
// matching spec.md §7's "swallowed at the task boundary" requirement:
// the error never propagates, but it is not silently lost from the logs.
func LogFileSkip(stage, path string, reason error) {
	slog.Debug("skipped entry", "stage", stage, "path", path, "reason", reason)
}

// LogFileFailure records an Executor failure on one plan item.
func LogFileFailure(path, reason string) {
	slog.Warn("item failed", "path", path, "reason", reason)
}
