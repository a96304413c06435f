// Package archive keeps a local JSON history of ended chat sessions.
package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/csheth/bnchat/internal/session"
)

const entryTypeSession = "session"

type entryHeader struct {
	EntryType string `json:"entryType"`
}

// SessionEntry is one archived session.
type SessionEntry struct {
	EntryType    string            `json:"entryType"`
	SessionID    string            `json:"sessionId"`
	Reason       string            `json:"reason"`
	StartedAt    time.Time         `json:"startedAt"`
	EndedAt      time.Time         `json:"endedAt"`
	TrustScore   int               `json:"trustScore"`
	SearchCount  int               `json:"searchCount"`
	LearningMode bool              `json:"learningMode,omitempty"`
	Messages     []session.Message `json:"messages,omitempty"`
}

// Store appends session entries to a JSON file. The zero path disables it.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a Store writing to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path reports the archive location.
func (s *Store) Path() string {
	return s.path
}

// Archive implements session.Archiver. Sessions holding nothing but the
// welcome message are skipped.
func (s *Store) Archive(record session.Record) error {
	if s == nil || s.path == "" {
		return nil
	}
	if !hasConversation(record.Messages) {
		return nil
	}
	entry := SessionEntry{
		EntryType:    entryTypeSession,
		SessionID:    record.SessionID,
		Reason:       record.Reason,
		StartedAt:    record.StartedAt,
		EndedAt:      record.EndedAt,
		TrustScore:   record.State.TrustScore,
		SearchCount:  record.State.SearchCount,
		LearningMode: record.State.LearningMode,
		Messages:     record.Messages,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntries(s.path, []json.RawMessage{raw})
}

// Sessions returns every archived session in the order it was written.
func (s *Store) Sessions() ([]SessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Load(s.path)
}

// Load reads the session entries stored at path. Entries of other types are
// ignored.
func Load(path string) ([]SessionEntry, error) {
	entries, err := loadEntries(path)
	if err != nil {
		return nil, err
	}
	sessions := make([]SessionEntry, 0, len(entries))
	for _, raw := range entries {
		var header entryHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, err
		}
		if header.EntryType != entryTypeSession {
			continue
		}
		var entry SessionEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, err
		}
		sessions = append(sessions, entry)
	}
	return sessions, nil
}

func hasConversation(messages []session.Message) bool {
	for _, msg := range messages {
		if msg.Kind != session.KindWelcome {
			return true
		}
	}
	return false
}

func appendEntries(path string, newEntries []json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	entries, err := loadEntries(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		entries = nil
	}
	entries = append(entries, newEntries...)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadEntries(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
