package alert

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"chat-screen-monitor/config"
	"chat-screen-monitor/dedup"
	"chat-screen-monitor/mailer"
	"chat-screen-monitor/store"
)

const alertTypeNegative = "negative_content"

// Notifier raises alert records and sends deduplicated alert emails.
type Notifier struct {
	alerts *store.AlertStore
	dedup  *dedup.Deduplicator
	sender mailer.Sender
	email  config.Email
	now    func() time.Time
}

// NewNotifier creates a Notifier. sender may be nil when email is disabled.
func NewNotifier(alerts *store.AlertStore, d *dedup.Deduplicator, sender mailer.Sender, email config.Email) *Notifier {
	return &Notifier{alerts: alerts, dedup: d, sender: sender, email: email, now: time.Now}
}

// Raise records an alert for the message unless the (nickname, messageTime)
// cooldown suppresses it, then sends at most one email ever for the message
// key. Email failure leaves the alert record standing; alert-without-email is
// a terminal state, not an error.
func (n *Notifier) Raise(messageID int, msg store.Message) (*store.Alert, error) {
	alertKey := dedup.AlertKey(msg.Nickname, msg.MessageTime)
	if !n.dedup.AllowAlert(alertKey) {
		log.Printf("Notifier: duplicate alert suppressed: %s", alertKey)
		return nil, nil
	}

	a := store.Alert{
		MessageIDs: strconv.Itoa(messageID),
		AlertType:  alertTypeNegative,
		Summary:    fmt.Sprintf("%s reported a problem: %s", msg.Nickname, truncate(msg.Content, 50)),
		CreatedAt:  n.now().Format(time.RFC3339),
	}
	id, err := n.alerts.Save(a)
	if err != nil {
		// In-memory record exists, snapshot write failed; keep going.
		log.Printf("Notifier: alert snapshot write failed: %v", err)
	}
	a.ID = id
	log.Printf("Notifier: alert %d created for message %d", id, messageID)

	if n.email.Enabled && n.email.Configured() && n.sender != nil {
		messageKey := dedup.MessageKey(msg.Nickname, msg.MessageTime, msg.Content)
		if n.dedup.AllowEmail(messageKey) {
			if err := n.sendEmail(msg); err != nil {
				log.Printf("Notifier: email send failed (alert %d stands): %v", id, err)
			} else {
				a.EmailSent = true
				if err := n.alerts.MarkEmailSent(id); err != nil {
					log.Printf("Notifier: failed to mark email sent: %v", err)
				}
			}
		} else {
			log.Printf("Notifier: email already sent for this message, skipping")
		}
	}
	return &a, nil
}

func (n *Notifier) sendEmail(msg store.Message) error {
	subject := fmt.Sprintf("[Monitor Alert] Negative message from %s", msg.Nickname)
	textBody := fmt.Sprintf(
		"Player: %s\nMessage time: %s\nTopic: %s\nSentiment: %s\n\n%s\n\nExtracted at: %s",
		msg.Nickname, msg.MessageTime, msg.Topic, msg.Sentiment, msg.Content, msg.ExtractedAt,
	)
	htmlBody := fmt.Sprintf(
		"<p><b>Player:</b> %s<br><b>Message time:</b> %s<br><b>Topic:</b> %s<br><b>Sentiment:</b> %s</p><blockquote>%s</blockquote><p><i>Extracted at %s</i></p>",
		msg.Nickname, msg.MessageTime, msg.Topic, msg.Sentiment, msg.Content, msg.ExtractedAt,
	)
	return n.sender.Send(n.email.To, subject, textBody, htmlBody)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
