// Package apitest provides an in-memory stand-in for the chat service, used
// by front-end and end-to-end tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/csheth/bnchat/internal/api"
)

// UnknownAnswer is returned by /api/chat for questions the fake cannot answer.
const UnknownAnswer = "দুঃখিত, আমি এখনো এটা জানি না"

// Server answers the bnchat endpoints from in-memory state.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	knowledge   map[string]string
	undo        []string
	results     []api.SearchResult
	quota       int
	searchCount int
	requests    []string
	sessionIDs  []string
}

// Option configures a Server.
type Option func(*Server)

// WithKnowledge seeds question/answer pairs.
func WithKnowledge(pairs map[string]string) Option {
	return func(s *Server) {
		for q, a := range pairs {
			s.knowledge[q] = a
		}
	}
}

// WithSearchResults sets the hits returned by every web search.
func WithSearchResults(results ...api.SearchResult) Option {
	return func(s *Server) {
		s.results = append([]api.SearchResult(nil), results...)
	}
}

// WithQuota sets the per-session search allowance. The default is 50.
func WithQuota(quota int) Option {
	return func(s *Server) {
		s.quota = quota
	}
}

// New starts a Server. Callers close it.
func New(opts ...Option) *Server {
	s := &Server{knowledge: map[string]string{}, quota: 50}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.chat)
	mux.HandleFunc("POST /api/web_search", s.webSearch)
	mux.HandleFunc("POST /api/learn", s.learn)
	mux.HandleFunc("POST /api/auto_learn", s.autoLearn)
	mux.HandleFunc("POST /api/undo", s.undoLast)
	mux.HandleFunc("POST /api/reset_session", s.reset)
	mux.HandleFunc("GET /api/knowledge/stats", s.knowledgeStats)
	mux.HandleFunc("GET /api/search_stats", s.searchStats)
	s.Server = httptest.NewServer(s.track(mux))
	return s
}

// Requests lists "METHOD /path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// SessionIDs lists the X-Session-ID header of every request.
func (s *Server) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sessionIDs...)
}

// Answer returns the stored answer for question.
func (s *Server) Answer(question string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.knowledge[question]
	return answer, ok
}

// SearchCount reports the searches spent in the current session.
func (s *Server) SearchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchCount
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.sessionIDs = append(s.sessionIDs, r.Header.Get("X-Session-ID"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Empty message"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if answer, ok := s.knowledge[message]; ok {
		writeJSON(w, http.StatusOK, api.ChatReply{Response: answer, Type: "learned"})
		return
	}
	if req.WebSearch && len(s.results) > 0 && s.searchCount < s.quota {
		s.searchCount++
		writeJSON(w, http.StatusOK, api.ChatReply{Response: s.results[0].Content, Type: "web_search", Sources: s.results})
		return
	}
	writeJSON(w, http.StatusOK, api.ChatReply{Response: UnknownAnswer, Type: "ai_generated"})
}

func (s *Server) webSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchCount >= s.quota {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "Search limit reached", "search_count": s.searchCount})
		return
	}
	s.searchCount++
	count := s.searchCount
	results := s.results
	if results == nil {
		results = []api.SearchResult{}
	}
	writeJSON(w, http.StatusOK, api.SearchReply{Results: results, Count: len(results), SearchCount: &count})
}

func (s *Server) learn(w http.ResponseWriter, r *http.Request) {
	var req api.LearnRequest
	if !decode(w, r, &req) {
		return
	}
	question, answer := strings.TrimSpace(req.Question), strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		writeJSON(w, http.StatusOK, api.LearnReply{Success: false, Message: "Question and answer are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.knowledge[question]; ok && existing != answer && !req.Override {
		writeJSON(w, http.StatusOK, api.LearnReply{Success: false, Message: "Already known", ExistingAnswer: existing})
		return
	}
	s.knowledge[question] = answer
	s.undo = append(s.undo, question)
	writeJSON(w, http.StatusOK, api.LearnReply{Success: true, Message: "Learned!"})
}

func (s *Server) autoLearn(w http.ResponseWriter, r *http.Request) {
	var req api.AutoLearnRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge[strings.TrimSpace(req.Question)] = req.Answer
	s.undo = append(s.undo, strings.TrimSpace(req.Question))
	writeJSON(w, http.StatusOK, api.ActionReply{Success: true, Message: "Learned from the web!"})
}

func (s *Server) undoLast(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		writeJSON(w, http.StatusOK, api.ActionReply{Success: false, Message: "Nothing to undo"})
		return
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	delete(s.knowledge, last)
	writeJSON(w, http.StatusOK, api.ActionReply{Success: true, Message: "Undone: " + last})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.searchCount = 0
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.ActionReply{Success: true, Message: "Session reset"})
}

func (s *Server) knowledgeStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.KnowledgeStats{
		TotalLearned:  len(s.knowledge),
		TodayLearned:  len(s.undo),
		TotalUsers:    1,
		UndoAvailable: len(s.undo),
	})
}

func (s *Server) searchStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.SearchStats{SearchCount: s.searchCount, Remaining: s.quota - s.searchCount})
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
