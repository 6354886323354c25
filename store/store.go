package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"chat-screen-monitor/classify"
)

// Message is one persisted chat message. Never mutated after creation,
// never deleted; the store is an append-only log.
type Message struct {
	ID             int                `json:"id"`
	Nickname       string             `json:"nickname"`
	MessageTime    string             `json:"message_time"`
	Content        string             `json:"content"`
	Topic          classify.Topic     `json:"topic"`
	Sentiment      classify.Sentiment `json:"sentiment"`
	IsAlert        bool               `json:"is_alert"`
	ExtractedAt    string             `json:"extracted_at"`
	ScreenshotPath string             `json:"screenshot_path"`
	CreatedAt      string             `json:"created_at"`
}

// Alert is one persisted alert record.
type Alert struct {
	ID         int    `json:"id"`
	MessageIDs string `json:"message_ids"`
	AlertType  string `json:"alert_type"`
	Summary    string `json:"summary"`
	EmailSent  bool   `json:"email_sent"`
	CreatedAt  string `json:"created_at"`
}

type messageSnapshot struct {
	Messages []Message `json:"messages"`
	NextID   int       `json:"nextId"`
}

type alertSnapshot struct {
	Alerts []Alert `json:"alerts"`
	NextID int     `json:"nextId"`
}

// MessageStore is an append-only in-memory message list with a durable JSON
// snapshot. Durability is best-effort: every save rewrites the snapshot, and
// a snapshot that fails to parse at startup resets the store rather than
// failing it.
type MessageStore struct {
	path     string
	messages []Message
	nextID   int
}

// NewMessageStore loads the snapshot at path, or starts empty.
func NewMessageStore(path string) *MessageStore {
	s := &MessageStore{path: path, nextID: 1}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var snap messageSnapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		log.Printf("MessageStore: snapshot %s unreadable, starting empty: %v", path, err)
		return s
	}
	s.messages = snap.Messages
	if snap.NextID > 0 {
		s.nextID = snap.NextID
	}
	return s
}

// Save assigns the next sequential ID, appends the message, and rewrites the
// snapshot. The ID is returned even when the snapshot write fails; in-memory
// state is authoritative within a session.
func (s *MessageStore) Save(msg Message) (int, error) {
	msg.ID = s.nextID
	s.nextID++
	s.messages = append(s.messages, msg)
	if err := writeSnapshot(s.path, messageSnapshot{Messages: s.messages, NextID: s.nextID}); err != nil {
		return msg.ID, fmt.Errorf("persist messages: %w", err)
	}
	return msg.ID, nil
}

// All returns the full message list.
func (s *MessageStore) All() []Message {
	return s.messages
}

// Len returns the number of stored messages.
func (s *MessageStore) Len() int { return len(s.messages) }

// AlertStore persists alert records with the same snapshot policy as
// MessageStore.
type AlertStore struct {
	path   string
	alerts []Alert
	nextID int
}

// NewAlertStore loads the snapshot at path, or starts empty.
func NewAlertStore(path string) *AlertStore {
	s := &AlertStore{path: path, nextID: 1}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var snap alertSnapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		log.Printf("AlertStore: snapshot %s unreadable, starting empty: %v", path, err)
		return s
	}
	s.alerts = snap.Alerts
	if snap.NextID > 0 {
		s.nextID = snap.NextID
	}
	return s
}

// Save assigns the next sequential ID, appends the alert, and rewrites the
// snapshot.
func (s *AlertStore) Save(a Alert) (int, error) {
	a.ID = s.nextID
	s.nextID++
	s.alerts = append(s.alerts, a)
	if err := writeSnapshot(s.path, alertSnapshot{Alerts: s.alerts, NextID: s.nextID}); err != nil {
		return a.ID, fmt.Errorf("persist alerts: %w", err)
	}
	return a.ID, nil
}

// MarkEmailSent flags the alert with the given ID and rewrites the snapshot.
func (s *AlertStore) MarkEmailSent(id int) error {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].EmailSent = true
			return writeSnapshot(s.path, alertSnapshot{Alerts: s.alerts, NextID: s.nextID})
		}
	}
	return fmt.Errorf("alert %d not found", id)
}

// All returns the full alert list.
func (s *AlertStore) All() []Alert {
	return s.alerts
}

// writeSnapshot rewrites the whole snapshot via write-temp-then-rename so a
// crash mid-write cannot truncate the previous snapshot.
func writeSnapshot(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
