package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageKeyNormalization(t *testing.T) {
	base := MessageKey("alice", "12:30", "the game crashed")

	t.Run("whitespace-only differences collapse", func(t *testing.T) {
		assert.Equal(t, base, MessageKey(" alice ", "12:30", "the  game\tcrashed"))
		assert.Equal(t, base, MessageKey("alice", " 12:30 ", "the game crashed\n"))
	})

	t.Run("real differences do not collapse", func(t *testing.T) {
		assert.NotEqual(t, base, MessageKey("alice", "12:31", "the game crashed"))
		assert.NotEqual(t, base, MessageKey("bob", "12:30", "the game crashed"))
		assert.NotEqual(t, base, MessageKey("alice", "12:30", "the game crashed!"))
	})
}

func TestSeenMessage(t *testing.T) {
	d := New()
	key := MessageKey("alice", "12:30", "hello")

	assert.False(t, d.SeenMessage(key))
	d.MarkMessage(key)
	assert.True(t, d.SeenMessage(key))
	assert.True(t, d.SeenMessage(MessageKey(" alice", "12:30 ", "hello")))
}

func TestAllowAlertCooldown(t *testing.T) {
	d := New()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return now })
	key := AlertKey("alice", "12:30")

	assert.True(t, d.AllowAlert(key), "first alert allowed")

	now = now.Add(29 * time.Minute)
	assert.False(t, d.AllowAlert(key), "suppressed inside cooldown")

	// Suppression must not refresh the window: 31 minutes after the
	// original alert, a new one is allowed even though a suppressed
	// attempt happened at minute 29.
	now = now.Add(2 * time.Minute)
	assert.True(t, d.AllowAlert(key), "allowed after cooldown expires")

	assert.True(t, d.AllowAlert(AlertKey("bob", "12:30")), "independent keys unaffected")
}

func TestAllowEmailOncePerKey(t *testing.T) {
	d := New()
	key := MessageKey("alice", "12:30", "hello")

	assert.True(t, d.AllowEmail(key))
	assert.False(t, d.AllowEmail(key), "at most one email per message ever")
	assert.True(t, d.AllowEmail(MessageKey("alice", "12:30", "different")))
}
