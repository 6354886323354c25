package alert

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-screen-monitor/classify"
	"chat-screen-monitor/config"
	"chat-screen-monitor/dedup"
	"chat-screen-monitor/store"
)

type fakeSender struct {
	sent []string // subjects
	err  error
}

func (f *fakeSender) Send(to []string, subject, textBody, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, subject)
	return nil
}

func negativeMessage(nick, messageTime, content string) store.Message {
	return store.Message{
		Nickname:    nick,
		MessageTime: messageTime,
		Content:     content,
		Topic:       classify.TopicBug,
		Sentiment:   classify.SentimentNegative,
		IsAlert:     true,
	}
}

func enabledEmail() config.Email {
	return config.Email{Enabled: true, SMTPHost: "smtp.example.com", SMTPPort: 465, To: []string{"ops@example.com"}}
}

func newTestNotifier(t *testing.T, sender *fakeSender, email config.Email) (*Notifier, *store.AlertStore, *dedup.Deduplicator, func(time.Duration)) {
	t.Helper()
	alerts := store.NewAlertStore(filepath.Join(t.TempDir(), "alerts.json"))
	d := dedup.New()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return now })
	n := NewNotifier(alerts, d, sender, email)
	n.now = func() time.Time { return now }
	advance := func(delta time.Duration) { now = now.Add(delta) }
	return n, alerts, d, advance
}

func TestRaiseCooldown(t *testing.T) {
	sender := &fakeSender{}
	n, alerts, _, advance := newTestNotifier(t, sender, enabledEmail())

	a, err := n.Raise(1, negativeMessage("alice", "12:30", "it crashed"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "negative_content", a.AlertType)
	assert.Contains(t, a.Summary, "alice")

	// Same (nickname, messageTime) within 30 minutes: suppressed.
	advance(10 * time.Minute)
	a2, err := n.Raise(2, negativeMessage("alice", "12:30", "it crashed again"))
	require.NoError(t, err)
	assert.Nil(t, a2)
	assert.Len(t, alerts.All(), 1)

	// After the window a second alert is created.
	advance(25 * time.Minute)
	a3, err := n.Raise(3, negativeMessage("alice", "12:30", "still crashing"))
	require.NoError(t, err)
	require.NotNil(t, a3)
	assert.Len(t, alerts.All(), 2)
}

func TestRaiseEmailOncePerMessage(t *testing.T) {
	sender := &fakeSender{}
	n, alerts, _, advance := newTestNotifier(t, sender, enabledEmail())

	msg := negativeMessage("alice", "12:30", "it crashed")
	a, err := n.Raise(1, msg)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.EmailSent)
	assert.Len(t, sender.sent, 1)
	assert.True(t, alerts.All()[0].EmailSent)

	// Identical tuple after the cooldown: new alert, but no second email ever.
	advance(31 * time.Minute)
	a2, err := n.Raise(2, msg)
	require.NoError(t, err)
	require.NotNil(t, a2)
	assert.False(t, a2.EmailSent)
	assert.Len(t, sender.sent, 1)
}

func TestRaiseEmailFailureKeepsAlert(t *testing.T) {
	sender := &fakeSender{err: fmt.Errorf("smtp: connection refused")}
	n, alerts, _, _ := newTestNotifier(t, sender, enabledEmail())

	a, err := n.Raise(1, negativeMessage("alice", "12:30", "it crashed"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.False(t, a.EmailSent)
	require.Len(t, alerts.All(), 1, "alert record stands despite email failure")
	assert.False(t, alerts.All()[0].EmailSent)
}

func TestRaiseEmailDisabled(t *testing.T) {
	sender := &fakeSender{}
	n, _, _, _ := newTestNotifier(t, sender, config.Email{Enabled: false})

	a, err := n.Raise(1, negativeMessage("alice", "12:30", "it crashed"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Empty(t, sender.sent)
}

func TestRaiseEmailUnconfigured(t *testing.T) {
	sender := &fakeSender{}
	// Enabled but no host/recipients: treated as not configured.
	n, _, _, _ := newTestNotifier(t, sender, config.Email{Enabled: true})

	a, err := n.Raise(1, negativeMessage("alice", "12:30", "it crashed"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Empty(t, sender.sent)
}

func TestSummaryTruncation(t *testing.T) {
	n, _, _, _ := newTestNotifier(t, &fakeSender{}, config.Email{})

	long := ""
	for i := 0; i < 20; i++ {
		long += "crash"
	}
	a, err := n.Raise(1, negativeMessage("alice", "12:30", long))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Contains(t, a.Summary, "...")
	assert.Less(t, len(a.Summary), len(long))
}
