package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// ConversationLogEvent is one logged chat turn.
type ConversationLogEvent struct {
	Timestamp string `json:"ts"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Direction string `json:"direction"`  // "outbound" (user) or "inbound" (assistant)
	EventType string `json:"event_type"` // "chat_user_message" or "chat_assistant_message"
	Content   string `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records chat turns for later inspection.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// NoopConversationLogger discards all events.
type NoopConversationLogger struct{}

func (NoopConversationLogger) Log(ConversationLogEvent) {}
func (NoopConversationLogger) Close() error             { return nil }

// ndjsonLogger appends events to per-session NDJSON files under
// dir/<user_id>/<session_id>.ndjson via a buffered background writer, so
// logging never blocks the request path.
type ndjsonLogger struct {
	dir    string
	queue  chan ConversationLogEvent
	done   chan struct{}
	closed sync.Once
	log    *slog.Logger
}

// NewConversationLogger creates a ConversationLogger per cfg. When logging
// is disabled it returns a no-op logger.
func NewConversationLogger(cfg ConversationLogConfig, log *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return NoopConversationLogger{}, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("conversation log dir is empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &ndjsonLogger{
		dir:   cfg.Dir,
		queue: make(chan ConversationLogEvent, queueSize),
		done:  make(chan struct{}),
		log:   log,
	}
	go l.run()
	return l, nil
}

// Log enqueues an event. Events are dropped rather than blocking when the
// queue is full.
func (l *ndjsonLogger) Log(event ConversationLogEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- event:
	default:
		l.log.Warn("conversation log queue full, dropping event",
			"user_id", event.UserID, "session_id", event.SessionID)
	}
}

// Close drains the queue and stops the writer.
func (l *ndjsonLogger) Close() error {
	l.closed.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *ndjsonLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.log.Warn("failed to write conversation log event", "error", err)
		}
	}
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._:-]`)

func (l *ndjsonLogger) write(event ConversationLogEvent) error {
	userDir := filepath.Join(l.dir, unsafePathChars.ReplaceAllString(event.UserID, "_"))
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return fmt.Errorf("create user log dir: %w", err)
	}

	name := unsafePathChars.ReplaceAllString(event.SessionID, "_") + ".ndjson"
	f, err := os.OpenFile(filepath.Join(userDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append log event: %w", err)
	}
	return nil
}
