package llm

import (
	"log/slog"
)

// CallEvent records metadata about a single completion call.
type CallEvent struct {
	Model     string
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about completion calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// SlogObserver logs completion call events through a slog.Logger.
type SlogObserver struct {
	log *slog.Logger
}

// NewSlogObserver creates an Observer that logs events via log.
func NewSlogObserver(log *slog.Logger) *SlogObserver {
	return &SlogObserver{log: log}
}

func (o *SlogObserver) OnCallComplete(event CallEvent) {
	if event.Success {
		o.log.Info("llm call completed",
			"model", event.Model,
			"latency_ms", event.LatencyMs)
		return
	}
	o.log.Warn("llm call failed",
		"model", event.Model,
		"latency_ms", event.LatencyMs,
		"error_code", event.ErrorCode)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
