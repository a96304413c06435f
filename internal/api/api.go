package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const userAgent = "bnchat"

// Config describes how to build a service client.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	SessionID  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client exposes the remote chat, knowledge and search endpoints.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatReply, error)
	WebSearch(ctx context.Context, query string) (SearchReply, error)
	Learn(ctx context.Context, req LearnRequest) (LearnReply, error)
	AutoLearn(ctx context.Context, req AutoLearnRequest) (ActionReply, error)
	Undo(ctx context.Context) (ActionReply, error)
	ResetSession(ctx context.Context) (ActionReply, error)
	KnowledgeStats(ctx context.Context) (KnowledgeStats, error)
	SearchStats(ctx context.Context) (SearchStats, error)
	// SetSessionID changes the identifier sent with every request.
	SetSessionID(id string)
	Endpoint() string
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	WebSearch bool   `json:"web_search"`
}

// ChatReply is a successful /api/chat answer.
type ChatReply struct {
	Response   string         `json:"response"`
	Type       string         `json:"type"`
	Sources    []SearchResult `json:"sources,omitempty"`
	TrustScore *int           `json:"trust_score,omitempty"`
}

// SearchResult is one web search hit. Every field may be absent.
type SearchResult struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// SearchReply is a successful /api/web_search answer.
type SearchReply struct {
	Results     []SearchResult `json:"results"`
	Count       int            `json:"count,omitempty"`
	SearchCount *int           `json:"search_count,omitempty"`
}

// LearnRequest carries one teaching submission.
type LearnRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Override bool   `json:"override,omitempty"`
}

// LearnReply reports the outcome of a teaching submission. ExistingAnswer is
// set when the question already has a different stored answer.
type LearnReply struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ExistingAnswer string `json:"existing_answer,omitempty"`
}

// AutoLearnRequest teaches the service a web search result.
type AutoLearnRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}

// ActionReply is the generic {success, message} answer.
type ActionReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// KnowledgeStats mirrors GET /api/knowledge/stats. Missing fields read as zero.
type KnowledgeStats struct {
	TotalLearned   int `json:"total_learned"`
	SmartKnowledge int `json:"smart_knowledge"`
	TodayLearned   int `json:"today_learned"`
	TotalUsers     int `json:"total_users"`
	UndoAvailable  int `json:"undo_available"`
	TotalLogs      int `json:"total_logs"`
	CacheSize      int `json:"cache_size"`
}

// SearchStats mirrors GET /api/search_stats.
type SearchStats struct {
	SearchCount int  `json:"search_count"`
	Remaining   int  `json:"remaining"`
	TrustScore  *int `json:"trust_score,omitempty"`
}
