package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"chat-screen-monitor/alert"
	"chat-screen-monitor/classify"
	"chat-screen-monitor/config"
	"chat-screen-monitor/dedup"
	"chat-screen-monitor/extract"
	"chat-screen-monitor/llm"
	"chat-screen-monitor/logutil"
	"chat-screen-monitor/mailer"
	"chat-screen-monitor/monitor"
	"chat-screen-monitor/screenshot"
	"chat-screen-monitor/sheet"
	"chat-screen-monitor/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logutil.Setup(cfg.EnableFileLogging)
	log.Printf("Starting chat screen monitor, model=%s backend=%s key=%s",
		cfg.Model, cfg.Backend, logutil.RedactKey(cfg.APIKey))

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	monitorCfg := config.MonitorFromEnv()
	if err := monitorCfg.Validate(); err != nil {
		return fmt.Errorf("monitor configuration: %w\nSet MONITOR_WIDTH/MONITOR_HEIGHT (and MONITOR_X/MONITOR_Y) to the screen region to watch", err)
	}
	if bounds, err := screenshot.DisplayBounds(); err == nil {
		if !monitorCfg.Area.Bounds().In(bounds) {
			return fmt.Errorf("monitor area %v lies outside the display bounds %v", monitorCfg.Area.Bounds(), bounds)
		}
	}

	d := dedup.New()
	messages := store.NewMessageStore(filepath.Join(cfg.DataDir, "messages.json"))
	alerts := store.NewAlertStore(filepath.Join(cfg.DataDir, "alerts.json"))
	log.Printf("Loaded %d persisted messages", messages.Len())

	var sender mailer.Sender
	if monitorCfg.Email.Enabled {
		sender = mailer.NewSMTPSender(monitorCfg.Email)
	}

	mgr := monitor.New(monitor.Deps{
		Capturer:      screenshot.OSCapturer{},
		Extractor:     extract.New(backend),
		Classifier:    classify.New(backend),
		Notifier:      alert.NewNotifier(alerts, d, sender, monitorCfg.Email),
		Sink:          sheet.NewSink(cfg.SheetDir),
		Messages:      messages,
		Dedup:         d,
		ScreenshotDir: cfg.ScreenshotDir,
	})

	if err := mgr.Start(monitorCfg); err != nil {
		return err
	}

	go func() {
		for ev := range mgr.Events() {
			switch e := ev.(type) {
			case monitor.MessageEvent:
				fmt.Printf("[%s] %s %s: %s (%s/%s)\n",
					e.Message.ExtractedAt, e.Message.MessageTime, e.Message.Nickname,
					e.Message.Content, e.Message.Topic, e.Message.Sentiment)
			case monitor.StatusEvent:
				fmt.Fprintf(os.Stderr, "monitor %s error: %s\n", e.Stage, e.Error)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutting down")
	mgr.Stop()
	return nil
}

func newBackend(cfg *config.Config) (llm.Backend, error) {
	llmCfg := llm.Config{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		Model:         cfg.Model,
		ClassifyModel: cfg.ClassifyModel,
	}
	switch cfg.Backend {
	case "ollama":
		return llm.NewOllamaBackend(llmCfg)
	case "openai", "":
		return llm.NewOpenAIBackend(llmCfg)
	default:
		return nil, fmt.Errorf("unknown BACKEND %q (expected \"openai\" or \"ollama\")", cfg.Backend)
	}
}
