// Package stats defines the console display sink collaborator interface
// (spec.md §6): an "add event" operation and a "render header+stats"
// operation. The terminal display widget itself is out of scope (spec.md
// §1); this package only specifies the interface the core consumes and a
// minimal implementation backed by structured logging.
package stats

import (
	"context"

	"github.com/datawire/dlib/dlog"
)

// Sink is the console display collaborator the engines report through.
// It is deliberately narrow: the core never depends on rendering details,
// only on being able to note an event and periodically render a snapshot.
type Sink interface {
	AddEvent(event string)
	RenderHeader(fields map[string]any)
}

// LogSink is a minimal Sink backed by dlog, standing in for the
// out-of-scope terminal widget (spec.md §1).
type LogSink struct {
	ctx context.Context
}

// NewLogSink constructs a LogSink that logs through ctx.
func NewLogSink(ctx context.Context) *LogSink {
	return &LogSink{ctx: ctx}
}

func (s *LogSink) AddEvent(event string) {
	dlog.Debug(s.ctx, event)
}

func (s *LogSink) RenderHeader(fields map[string]any) {
	dlog.Infof(s.ctx, "stats: %v", fields)
}
