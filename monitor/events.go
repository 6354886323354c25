package monitor

import (
	"time"

	"chat-screen-monitor/store"
)

// Event is the base interface for UI-facing notifications emitted during a
// monitoring session.
type Event interface {
	Type() string
}

const (
	TypeMessage = "Message"
	TypeStats   = "Stats"
	TypeStatus  = "Status"
)

// MessageEvent carries one newly stored message.
type MessageEvent struct {
	Message store.Message
}

func (e MessageEvent) Type() string { return TypeMessage }

// StatsEvent carries per-cycle capture feedback: a small JPEG thumbnail of
// the monitored region and the capture timestamp.
type StatsEvent struct {
	Thumbnail  []byte
	CapturedAt time.Time
}

func (e StatsEvent) Type() string { return TypeStats }

// StatusEvent surfaces a non-fatal failure inside a cycle. The loop keeps
// running; this is informational only.
type StatusEvent struct {
	Stage string
	Error string
}

func (e StatusEvent) Type() string { return TypeStatus }
