package monitor

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chat-screen-monitor/classify"
	"chat-screen-monitor/config"
	"chat-screen-monitor/dedup"
	"chat-screen-monitor/extract"
	"chat-screen-monitor/imaging"
	"chat-screen-monitor/screenshot"
	"chat-screen-monitor/store"
)

// cycleTimeout bounds all model calls within one capture cycle. The interval
// between cycles (tens of seconds) dwarfs per-cycle latency, so a generous
// fixed deadline is enough.
const cycleTimeout = 90 * time.Second

const thumbnailWidth = 320

// Extractor turns a cropped frame into raw chat messages.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]extract.RawMessage, error)
}

// Classifier labels message content. Implementations never fail; they fall
// back to a default classification.
type Classifier interface {
	Classify(ctx context.Context, content string) classify.Result
}

// Notifier raises alerts for flagged messages.
type Notifier interface {
	Raise(messageID int, msg store.Message) (*store.Alert, error)
}

// Sink receives stored messages for the hourly spreadsheet.
type Sink interface {
	EnsureHourlySheet(t time.Time) error
	Append(records []store.Message, t time.Time) error
}

// Manager owns the capture-and-process loop. It is explicitly constructed
// with its collaborators and holds no global state; the hosting process keeps
// the single instance.
//
// States: Idle -> Running -> Idle. One cycle runs to completion before the
// next is scheduled, so there are no overlapping cycles and no concurrent
// writes to the store or the spreadsheet.
type Manager struct {
	capturer      screenshot.Capturer
	extractor     Extractor
	classifier    Classifier
	notifier      Notifier
	sink          Sink
	messages      *store.MessageStore
	dedup         *dedup.Deduplicator
	screenshotDir string
	events        chan Event
	now           func() time.Time

	mu      sync.Mutex
	running bool
	cfg     config.Monitor
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Deps bundles the collaborators for New.
type Deps struct {
	Capturer      screenshot.Capturer
	Extractor     Extractor
	Classifier    Classifier
	Notifier      Notifier
	Sink          Sink
	Messages      *store.MessageStore
	Dedup         *dedup.Deduplicator
	ScreenshotDir string
}

// New creates an idle Manager.
func New(deps Deps) *Manager {
	return &Manager{
		capturer:      deps.Capturer,
		extractor:     deps.Extractor,
		classifier:    deps.Classifier,
		notifier:      deps.Notifier,
		sink:          deps.Sink,
		messages:      deps.Messages,
		dedup:         deps.Dedup,
		screenshotDir: deps.ScreenshotDir,
		events:        make(chan Event, 64),
		now:           time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Events returns the UI event stream. Events are dropped, never blocked on,
// when no consumer keeps up.
func (m *Manager) Events() <-chan Event { return m.events }

// Running reports whether a monitoring session is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Config returns the configuration of the current or most recent session.
func (m *Manager) Config() config.Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Start begins a monitoring session: an immediate first cycle, then one cycle
// every IntervalSeconds, each scheduled only after the previous one fully
// completes so processing time does not compound. Starting while already
// running is a logged no-op.
func (m *Manager) Start(cfg config.Monitor) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid monitor config: %w", err)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		log.Printf("Monitor: already running, start ignored")
		return nil
	}
	m.running = true
	m.cfg = cfg
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	if err := m.sink.EnsureHourlySheet(m.now()); err != nil {
		log.Printf("Monitor: ensure hourly sheet: %v", err)
	}

	log.Printf("Monitor: started, interval=%ds area=%dx%d at (%d,%d)",
		cfg.IntervalSeconds, cfg.Area.Width, cfg.Area.Height, cfg.Area.X, cfg.Area.Y)
	go m.loop(cfg, m.stopCh, m.doneCh)
	return nil
}

// Stop ends the session. The in-flight cycle, if any, runs to completion
// (including its spreadsheet append); only the next cycle is cancelled. Stop
// returns after the loop has exited and is a no-op when already idle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	log.Printf("Monitor: stopped")
}

// loop runs cycles until stopped. A single-shot timer is re-armed after each
// cycle completes; no fixed-rate ticker, so a slow cycle cannot build a
// backlog.
func (m *Manager) loop(cfg config.Monitor, stopCh chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		m.runCycle(cfg)
		timer := time.NewTimer(interval)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle executes one capture cycle. Every failure is contained here: a
// broken stage logs, surfaces a status event, and lets the loop schedule the
// next cycle.
func (m *Manager) runCycle(cfg config.Monitor) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Monitor: cycle panic recovered: %v", r)
		}
	}()

	now := m.now()

	frame, err := m.capturer.CaptureFullScreen()
	if err != nil {
		m.fail("capture", err)
		return
	}

	cropped, err := imaging.Crop(frame, cfg.Area)
	if err != nil {
		m.fail("crop", err)
		return
	}

	screenshotPath := m.saveScreenshot(cropped, now)

	if err := m.sink.EnsureHourlySheet(now); err != nil {
		log.Printf("Monitor: ensure hourly sheet: %v", err)
	}

	m.emitStats(cropped, now)

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	raws, err := m.extractor.Extract(ctx, cropped)
	if err != nil {
		m.fail("extract", err)
		return
	}
	if len(raws) == 0 {
		return
	}
	log.Printf("Monitor: extracted %d messages", len(raws))

	stored := m.processMessages(ctx, cfg, raws, screenshotPath, now)

	if len(stored) > 0 {
		if err := m.sink.Append(stored, now); err != nil {
			log.Printf("Monitor: spreadsheet append: %v", err)
		}
	}
}

// processMessages classifies, persists, and alerts on each extracted message,
// skipping duplicates. Returns the messages stored this cycle in arrival
// order.
func (m *Manager) processMessages(ctx context.Context, cfg config.Monitor, raws []extract.RawMessage, screenshotPath string, now time.Time) []store.Message {
	var stored []store.Message
	for _, raw := range raws {
		key := dedup.MessageKey(raw.Nickname, raw.MessageTime, raw.Content)
		if m.dedup.SeenMessage(key) {
			log.Printf("Monitor: duplicate message skipped: %s %s", raw.Nickname, raw.MessageTime)
			continue
		}

		result := m.classifier.Classify(ctx, raw.Content)
		msg := store.Message{
			Nickname:       raw.Nickname,
			MessageTime:    raw.MessageTime,
			Content:        raw.Content,
			Topic:          result.Topic,
			Sentiment:      result.Sentiment,
			IsAlert:        result.Sentiment == classify.SentimentNegative || matchesKeyword(raw.Content, cfg.AlertKeywords),
			ExtractedAt:    now.Format("2006-01-02 15:04:05"),
			ScreenshotPath: screenshotPath,
			CreatedAt:      now.Format(time.RFC3339),
		}

		id, err := m.messages.Save(msg)
		if err != nil {
			// In-memory append succeeded; only the snapshot write failed.
			log.Printf("Monitor: message snapshot write failed: %v", err)
		}
		msg.ID = id
		m.dedup.MarkMessage(key)
		m.emit(MessageEvent{Message: msg})
		stored = append(stored, msg)

		if msg.IsAlert {
			if _, err := m.notifier.Raise(id, msg); err != nil {
				log.Printf("Monitor: alert failed for message %d: %v", id, err)
			}
		}
	}
	return stored
}

// matchesKeyword checks the legacy keyword-based alert triggers. Sentiment
// supersedes these, but configured keywords still force an alert flag.
func matchesKeyword(content string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

// saveScreenshot writes the cropped frame as a timestamped PNG. A write
// failure is logged and the intended path still recorded on the messages.
func (m *Manager) saveScreenshot(img image.Image, now time.Time) string {
	timestamp := strings.ReplaceAll(now.Format("2006-01-02T15:04:05"), ":", "-")
	path := filepath.Join(m.screenshotDir, fmt.Sprintf("monitor_%s.png", timestamp))
	pngData, err := imaging.EncodePNG(img)
	if err != nil {
		log.Printf("Monitor: screenshot encode: %v", err)
		return path
	}
	if err := os.MkdirAll(m.screenshotDir, 0o755); err != nil {
		log.Printf("Monitor: screenshot dir: %v", err)
		return path
	}
	if err := os.WriteFile(path, pngData, 0o644); err != nil {
		log.Printf("Monitor: screenshot write: %v", err)
	}
	return path
}

func (m *Manager) emitStats(img image.Image, now time.Time) {
	thumb, err := imaging.EncodeJPEG(imaging.Thumbnail(img, thumbnailWidth), 70)
	if err != nil {
		log.Printf("Monitor: thumbnail encode: %v", err)
		return
	}
	m.emit(StatsEvent{Thumbnail: thumb, CapturedAt: now})
}

func (m *Manager) fail(stage string, err error) {
	log.Printf("Monitor: %s error: %v", stage, err)
	m.emit(StatusEvent{Stage: stage, Error: err.Error()})
}

func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}
