// Package logging centralizes slog setup: a process-wide level that every
// named sub-logger shares, and the log/slog -> go-logr/logr bridge used to
// feed controller-runtime and klog the same structured output as the rest
// of this program -- a single atomic level, logr.FromSlogHandler wrapping a
// named handler, wired into ctrl.SetLogger and klog.SetLogger exactly
// once.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"k8s.io/klog/v2"
)

var (
	level      = new(slog.LevelVar)
	setOnce    sync.Once
	baseHandler slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
)

// ParseLevel maps a user-facing level name onto an slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unrecognized level %q", s)
	}
}

// Reset sets the process-wide log level. Every logger returned by New,
// past or future, observes the new level immediately since they all share
// the same underlying slog.LevelVar.
func Reset(l slog.Level) {
	level.Set(l)
}

// New returns a named slog.Logger, tagged with a "component" attribute so
// log lines can be filtered by subsystem.
func New(component string) *slog.Logger {
	return slog.New(baseHandler).With("component", component)
}

// Bootstrap parses levelStr (falling back to info on a bad value, logging
// the failure rather than aborting startup), resets the process level, and
// -- exactly once per process -- wires controller-runtime and klog to log
// through the same slog handler tree as everything else.
func Bootstrap(levelStr string) {
	lvl, err := ParseLevel(levelStr)
	if err != nil {
		New("logging").Error("failed to parse log level, defaulting to info", "error", err)
		lvl = slog.LevelInfo
	}
	Reset(lvl)

	setOnce.Do(func() {
		ctrl.SetLogger(logr.FromSlogHandler(New("controller-runtime").Handler()))
		klog.SetLogger(logr.FromSlogHandler(New("klog").Handler()))
	})
}
