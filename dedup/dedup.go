package dedup

import (
	"strings"
	"time"
)

// AlertCooldown is the suppression window for repeat alerts on the same
// (nickname, messageTime) key.
const AlertCooldown = 30 * time.Minute

// Deduplicator holds the three independent suppression mechanisms of the
// pipeline. All state is session-scoped: restarting the process resets it.
// It is used from a single goroutine (the monitor loop), so no locking.
type Deduplicator struct {
	seenMessages map[string]struct{}
	lastAlert    map[string]time.Time
	sentEmails   map[string]struct{}
	now          func() time.Time
}

// New creates an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		seenMessages: make(map[string]struct{}),
		lastAlert:    make(map[string]time.Time),
		sentEmails:   make(map[string]struct{}),
		now:          time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (d *Deduplicator) SetClock(now func() time.Time) { d.now = now }

// normalize trims and collapses internal whitespace so that re-OCRed copies
// of the same message compare equal.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MessageKey identifies a unique message for ingestion suppression.
func MessageKey(nickname, messageTime, content string) string {
	return normalize(nickname) + "|" + normalize(messageTime) + "|" + normalize(content)
}

// AlertKey is the coarser (nickname, messageTime) key gating repeat alerts.
func AlertKey(nickname, messageTime string) string {
	return nickname + "-" + messageTime
}

// SeenMessage reports whether the message key was already ingested this
// session.
func (d *Deduplicator) SeenMessage(key string) bool {
	_, ok := d.seenMessages[key]
	return ok
}

// MarkMessage records a message key as ingested.
func (d *Deduplicator) MarkMessage(key string) {
	d.seenMessages[key] = struct{}{}
}

// AllowAlert reports whether an alert for the key is outside the cooldown
// window, and records the alert time when it is. Suppressed alerts do not
// refresh the window.
func (d *Deduplicator) AllowAlert(key string) bool {
	now := d.now()
	if last, ok := d.lastAlert[key]; ok && now.Sub(last) < AlertCooldown {
		return false
	}
	d.lastAlert[key] = now
	return true
}

// AllowEmail reports whether an email may be sent for the message key, and
// records the send when it may. At most one email per unique message, ever.
func (d *Deduplicator) AllowEmail(key string) bool {
	if _, ok := d.sentEmails[key]; ok {
		return false
	}
	d.sentEmails[key] = struct{}{}
	return true
}
