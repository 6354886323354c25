package classify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bytedance/sonic"

	"chat-screen-monitor/llm"
)

// Topic is the message topic category.
type Topic string

const (
	TopicBug       Topic = "BUG"
	TopicGameplay  Topic = "Gameplay"
	TopicComplaint Topic = "Complaint"
	TopicOther     Topic = "Other"
)

// Sentiment is the message sentiment category.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Result is a validated classification. Values are always within the enums.
type Result struct {
	Topic     Topic     `json:"topic"`
	Sentiment Sentiment `json:"sentiment"`
}

// Default is the safe fallback used whenever classification cannot produce a
// trustworthy answer.
var Default = Result{Topic: TopicOther, Sentiment: SentimentNeutral}

const promptTemplate = `Classify this chat message from a game community.
Respond with ONLY a compact JSON object, no explanations and no markdown fences:
{"topic": "BUG" | "Gameplay" | "Complaint" | "Other", "sentiment": "Positive" | "Neutral" | "Negative"}

Message:
%s`

// Classifier labels message content with topic and sentiment via a text model.
type Classifier struct {
	backend llm.Backend
}

// New creates a Classifier on the given backend.
func New(backend llm.Backend) *Classifier {
	return &Classifier{backend: backend}
}

// Classify returns the topic and sentiment for content. Any call failure,
// unparseable answer, out-of-enum value, or empty input maps to Default;
// classification never blocks the pipeline.
func (c *Classifier) Classify(ctx context.Context, content string) Result {
	if strings.TrimSpace(content) == "" {
		return Default
	}
	raw, err := c.backend.QueryText(ctx, fmt.Sprintf(promptTemplate, content))
	if err != nil {
		log.Printf("Classifier: call failed, using default: %v", err)
		return Default
	}
	return parseResult(raw)
}

// parseResult extracts and validates the {topic, sentiment} object from the
// model's raw output.
func parseResult(raw string) Result {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Default
	}
	var parsed struct {
		Topic     string `json:"topic"`
		Sentiment string `json:"sentiment"`
	}
	if err := sonic.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return Default
	}
	res := Default
	switch Topic(parsed.Topic) {
	case TopicBug, TopicGameplay, TopicComplaint, TopicOther:
		res.Topic = Topic(parsed.Topic)
	}
	switch Sentiment(parsed.Sentiment) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		res.Sentiment = Sentiment(parsed.Sentiment)
	}
	return res
}
