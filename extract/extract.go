package extract

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"chat-screen-monitor/imaging"
	"chat-screen-monitor/llm"
)

// RawMessage is one chat message as reported by the vision model. Field
// values are untrusted free text; messageTime in particular is whatever the
// model read off the screen.
type RawMessage struct {
	Nickname    string `json:"nickname"`
	MessageTime string `json:"messageTime"`
	Content     string `json:"content"`
}

const extractPrompt = `This image is a screenshot of a chat window. Extract every visible chat message.
Return ONLY a JSON array, no explanations and no markdown fences. Each element must be:
{"nickname": "sender name", "messageTime": "time shown next to the message", "content": "message text"}
Preserve the original language of the messages. If no messages are visible, return [].`

const (
	// olmOCR-class models degrade past ~1288px on the longer side.
	maxSide = 1288
	// retrySide is the more aggressive downscale used after an image
	// decode failure at the endpoint.
	retrySide = 640
)

// Extractor turns a cropped screenshot into chat messages via a vision model.
type Extractor struct {
	backend llm.Backend
	now     func() time.Time
}

// New creates an Extractor on the given backend.
func New(backend llm.Backend) *Extractor {
	return &Extractor{backend: backend, now: time.Now}
}

// Extract sends the image to the vision model and parses the response.
// Zero messages extracted is a valid, non-error outcome. On an image decode
// failure at the endpoint it retries exactly once with a smaller image.
func (e *Extractor) Extract(ctx context.Context, img image.Image) ([]RawMessage, error) {
	raw, err := e.query(ctx, img, maxSide)
	if err != nil {
		if !llm.IsImageError(err) {
			return nil, fmt.Errorf("extraction failed: %w", err)
		}
		log.Printf("Extractor: endpoint rejected image, retrying at %dpx: %v", retrySide, err)
		raw, err = e.query(ctx, img, retrySide)
		if err != nil {
			return nil, fmt.Errorf("extraction failed after retry: %w", err)
		}
	}
	return e.parse(raw), nil
}

func (e *Extractor) query(ctx context.Context, img image.Image, side int) (string, error) {
	pngData, err := imaging.EncodePNG(imaging.ResizeForModel(img, side))
	if err != nil {
		return "", err
	}
	return e.backend.QueryVision(ctx, pngData, extractPrompt)
}

// parse applies the parsing policy to the raw model output.
func (e *Extractor) parse(raw string) []RawMessage {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	msgs, found := ParseMessages(text)
	if found {
		return msgs
	}
	// No JSON array anywhere in the response: the model answered in prose.
	// Keep the OCR output instead of silently dropping it.
	return []RawMessage{{
		Nickname:    "OCR",
		MessageTime: e.now().Format("15:04"),
		Content:     text,
	}}
}

// ParseMessages finds the first syntactically valid JSON array substring in
// text and decodes it. Models routinely wrap the array in prose or code
// fences. found is false when the text contains no array candidate at all;
// a malformed or truncated array yields (nil, true) so callers do not treat
// garbage as prose. A '[' only counts as a candidate when it opens an array
// of objects or an empty array: OCR prose is full of bracketed timestamps
// like "[12:30]" that must fall through to the fallback record.
func ParseMessages(text string) (msgs []RawMessage, found bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' || !looksLikeMessageArray(text, i) {
			continue
		}
		found = true
		end := matchBracket(text, i)
		if end < 0 {
			continue
		}
		var parsed []RawMessage
		if err := sonic.Unmarshal([]byte(text[i:end+1]), &parsed); err != nil {
			continue
		}
		out := parsed[:0]
		for _, m := range parsed {
			if strings.TrimSpace(m.Content) != "" {
				out = append(out, m)
			}
		}
		return out, true
	}
	return nil, found
}

// looksLikeMessageArray reports whether the '[' at start opens a JSON array
// of objects ("[{" after optional whitespace) or an empty array ("[]").
func looksLikeMessageArray(s string, start int) bool {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', ']':
			return true
		default:
			return false
		}
	}
	return false
}

// matchBracket returns the index of the ']' closing the '[' at start,
// skipping brackets inside JSON strings. Returns -1 when unbalanced.
func matchBracket(s string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
