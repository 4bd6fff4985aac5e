// Package logging wires up the process-wide logger shared by all three
// cmd/* binaries. It adapts the teacher's hand-rolled pkg/logger (a colored
// stdlib-log wrapper with a Banner/Section helper) onto a real logging
// stack: logrus formats and levels the record, dlib/dlog carries it through
// context.Context into every engine, exactly as
// telepresenceio-telepresence/cmd/traffic/logger.go does for its daemons.
package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/datawire/dlib/dlog"
)

// WithBaseLogger attaches a logrus-backed dlog.Logger to ctx at the given
// level ("debug", "info", "warn", "error"; empty defaults to "info").
func WithBaseLogger(ctx context.Context, level string) context.Context {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	logger := dlog.WrapLogrus(l)
	return dlog.WithLogger(ctx, logger)
}

// Banner prints the startup banner for one of the three binaries. Written
// straight to os.Stdout rather than as a log line, the same way the teacher's
// logger.Banner stood apart from its leveled log output.
func Banner(name, version string) {
	const rule = "────────────────────────────────────────"
	os.Stdout.WriteString(rule + "\n")
	os.Stdout.WriteString("  lossynet " + name + " v" + version + "\n")
	os.Stdout.WriteString(rule + "\n")
}
