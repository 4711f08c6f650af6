// Package status collects the human-readable outcome messages produced
// while preparing, running and post-processing jobs.
package status

import (
	"context"
	"fmt"
	"golang-jobrunner/pkg/logger"
	"sync"
	"time"
)

type Severity string

const (
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
	Debug   Severity = "debug"
	Info    Severity = "info"
)

type Message struct {
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
	Origin   string    `json:"origin,omitempty"`
	Time     time.Time `json:"time"`
}

// Collector is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	messages []Message
	log      *logger.Logger
}

func NewCollector(log *logger.Logger) *Collector {
	return &Collector{log: log}
}

func (c *Collector) Add(ctx context.Context, sev Severity, origin, format string, args ...interface{}) {
	msg := Message{
		Severity: sev,
		Text:     fmt.Sprintf(format, args...),
		Origin:   origin,
		Time:     time.Now().UTC(),
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	if c.log == nil {
		return
	}
	switch sev {
	case Error:
		c.log.ErrorContext(ctx, msg.Text, logger.StringField("origin", origin))
	case Warning:
		c.log.WarnContext(ctx, msg.Text, logger.StringField("origin", origin))
	case Debug:
		c.log.DebugContext(ctx, msg.Text, logger.StringField("origin", origin))
	default:
		c.log.InfoContext(ctx, msg.Text, logger.StringField("origin", origin), logger.StringField("severity", string(sev)))
	}
}

func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Filter returns the messages of one severity.
func (c *Collector) Filter(sev Severity) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}

func (c *Collector) HasErrors() bool {
	return len(c.Filter(Error)) > 0
}

type contextKey string

const collectorContextKey contextKey = "status"

// NewContext attaches c to ctx.
func NewContext(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorContextKey, c)
}

// FromContext returns the attached collector or nil.
func FromContext(ctx context.Context) *Collector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(collectorContextKey).(*Collector)
	return c
}

// Report adds a message to the collector in ctx; without one the message is
// only logged through fallback.
func Report(ctx context.Context, fallback *logger.Logger, sev Severity, origin, format string, args ...interface{}) {
	if c := FromContext(ctx); c != nil {
		c.Add(ctx, sev, origin, format, args...)
		return
	}
	NewCollector(fallback).Add(ctx, sev, origin, format, args...)
}
