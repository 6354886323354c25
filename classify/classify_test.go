package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBackend struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeBackend) QueryVision(context.Context, []byte, string) (string, error) { return "", nil }

func (f *fakeBackend) QueryText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid response", func(t *testing.T) {
		c := New(&fakeBackend{response: `{"topic":"BUG","sentiment":"Negative"}`})
		res := c.Classify(ctx, "the login screen crashes every time")
		assert.Equal(t, TopicBug, res.Topic)
		assert.Equal(t, SentimentNegative, res.Sentiment)
	})

	t.Run("response wrapped in prose", func(t *testing.T) {
		c := New(&fakeBackend{response: "Sure! Here is the classification:\n{\"topic\": \"Complaint\", \"sentiment\": \"Negative\"}\nHope that helps."})
		res := c.Classify(ctx, "this event is unfair")
		assert.Equal(t, TopicComplaint, res.Topic)
		assert.Equal(t, SentimentNegative, res.Sentiment)
	})

	t.Run("out-of-enum values fall back per field", func(t *testing.T) {
		c := New(&fakeBackend{response: `{"topic":"Question","sentiment":"Positive"}`})
		res := c.Classify(ctx, "how do I craft this item")
		assert.Equal(t, TopicOther, res.Topic)
		assert.Equal(t, SentimentPositive, res.Sentiment)
	})

	t.Run("call failure maps to default", func(t *testing.T) {
		c := New(&fakeBackend{err: fmt.Errorf("connection refused")})
		assert.Equal(t, Default, c.Classify(ctx, "anything"))
	})

	t.Run("unparseable response maps to default", func(t *testing.T) {
		c := New(&fakeBackend{response: "I am not sure about this one"})
		assert.Equal(t, Default, c.Classify(ctx, "anything"))
	})

	t.Run("empty input maps to default without a model call", func(t *testing.T) {
		backend := &fakeBackend{response: `{"topic":"BUG","sentiment":"Negative"}`}
		c := New(backend)
		assert.Equal(t, Default, c.Classify(ctx, "   "))
		assert.Empty(t, backend.prompts)
	})

	t.Run("prompt contains the message", func(t *testing.T) {
		backend := &fakeBackend{response: `{"topic":"Other","sentiment":"Neutral"}`}
		c := New(backend)
		c.Classify(ctx, "the drop rate feels low")
		assert.Contains(t, backend.prompts[0], "the drop rate feels low")
	})
}
