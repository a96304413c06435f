package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const maxErrorBodyPreview = 512

type httpClient struct {
	base   string
	logger *zap.Logger

	mu        sync.RWMutex
	client    *http.Client
	sessionID string
}

// New builds a Client talking JSON over HTTP to cfg.Endpoint.
func New(cfg Config) (Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid service endpoint %q", cfg.Endpoint)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &httpClient{
		base:      endpoint,
		logger:    logger.With(zap.String("component", "api")),
		sessionID: cfg.SessionID,
	}
	client, err := withFreshJar(cfg.HTTPClient, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	c.client = client
	return c, nil
}

// withFreshJar copies the caller's client so the jar swap on reset never
// touches a shared *http.Client.
func withFreshJar(custom *http.Client, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	var clone http.Client
	if custom != nil {
		clone = *custom
	} else {
		clone.Timeout = timeout
	}
	clone.Jar = jar
	return &clone, nil
}

func (c *httpClient) Endpoint() string {
	return c.base
}

func (c *httpClient) SetSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

func (c *httpClient) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var reply ChatReply
	err := c.do(ctx, "chat", http.MethodPost, "/api/chat", req, &reply)
	return reply, err
}

func (c *httpClient) WebSearch(ctx context.Context, query string) (SearchReply, error) {
	var reply SearchReply
	payload := map[string]string{"query": query}
	if err := c.do(ctx, "web_search", http.MethodPost, "/api/web_search", payload, &reply); err != nil {
		return SearchReply{}, err
	}
	if reply.Results == nil {
		reply.Results = []SearchResult{}
	}
	return reply, nil
}

func (c *httpClient) Learn(ctx context.Context, req LearnRequest) (LearnReply, error) {
	var reply LearnReply
	err := c.do(ctx, "learn", http.MethodPost, "/api/learn", req, &reply)
	return reply, err
}

func (c *httpClient) AutoLearn(ctx context.Context, req AutoLearnRequest) (ActionReply, error) {
	var reply ActionReply
	err := c.do(ctx, "auto_learn", http.MethodPost, "/api/auto_learn", req, &reply)
	return reply, err
}

func (c *httpClient) Undo(ctx context.Context) (ActionReply, error) {
	var reply ActionReply
	err := c.do(ctx, "undo", http.MethodPost, "/api/undo", struct{}{}, &reply)
	return reply, err
}

func (c *httpClient) ResetSession(ctx context.Context) (ActionReply, error) {
	var reply ActionReply
	if err := c.do(ctx, "reset_session", http.MethodPost, "/api/reset_session", struct{}{}, &reply); err != nil {
		return reply, err
	}
	if reply.Success {
		c.mu.Lock()
		defer c.mu.Unlock()
		fresh, err := withFreshJar(c.client, c.client.Timeout)
		if err != nil {
			return reply, &NetworkError{Op: "reset_session", Err: err}
		}
		c.client = fresh
	}
	return reply, nil
}

func (c *httpClient) KnowledgeStats(ctx context.Context) (KnowledgeStats, error) {
	var stats KnowledgeStats
	err := c.do(ctx, "knowledge_stats", http.MethodGet, "/api/knowledge/stats", nil, &stats)
	return stats, err
}

func (c *httpClient) SearchStats(ctx context.Context) (SearchStats, error) {
	var stats SearchStats
	err := c.do(ctx, "search_stats", http.MethodGet, "/api/search_stats", nil, &stats)
	return stats, err
}

func (c *httpClient) do(ctx context.Context, op, method, path string, payload, out any) error {
	started := time.Now()
	status, body, err := c.roundTrip(ctx, op, method, path, payload)
	if err == nil {
		err = decodeBody(op, status, body, out)
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(started)),
	}
	if err != nil {
		c.logger.Warn("service call failed", append(fields, zap.Error(err))...)
		return err
	}
	c.logger.Debug("service call", fields...)
	return nil
}

func (c *httpClient) roundTrip(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &NetworkError{Op: op, Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.mu.RLock()
	client := c.client
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Op: op, Err: err}
	}
	return resp.StatusCode, body, nil
}

func decodeBody(op string, status int, body []byte, out any) error {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if status >= 400 {
			return &NetworkError{Op: op, Err: fmt.Errorf("%d %s (%s)", status, http.StatusText(status), preview(body))}
		}
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if envelope.Error != "" {
		return &ServiceError{Op: op, Status: status, Message: envelope.Error}
	}
	if status >= 400 {
		return &ServiceError{Op: op, Status: status, Message: http.StatusText(status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func preview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyPreview {
		text = text[:maxErrorBodyPreview]
	}
	return text
}
