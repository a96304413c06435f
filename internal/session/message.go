package session

import (
	"strings"
	"sync"
	"time"

	"github.com/csheth/bnchat/internal/api"
)

// Source is one reference attached to a bot answer. Any field may be empty.
type Source struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// DisplayTitle picks the best available label for the source.
func (s Source) DisplayTitle() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	if url := strings.TrimSpace(s.URL); url != "" {
		return url
	}
	return "Unknown source"
}

// Snippet returns at most limit runes of the content, with an ellipsis when
// clipped.
func (s Source) Snippet(limit int) string {
	content := strings.TrimSpace(s.Content)
	if content == "" {
		return "No content"
	}
	runes := []rune(content)
	if limit <= 0 || len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}

func sourcesFromResults(results []api.SearchResult) []Source {
	sources := make([]Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, Source{URL: result.URL, Title: result.Title, Content: result.Content})
	}
	return sources
}

// Message is one immutable transcript entry.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Kind      Kind      `json:"kind"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(sender Sender, kind Kind, text string, sources []Source) Message {
	return Message{
		Sender:    sender,
		Text:      text,
		Kind:      kind,
		Sources:   append([]Source(nil), sources...),
		Timestamp: time.Now(),
	}
}

// Transcript is the append-only, completion-ordered message log of a session.
type Transcript struct {
	mu       sync.Mutex
	messages []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds msg at the end.
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
}

// Messages returns a copy of the log.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// Len reports the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
