package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/csheth/bnchat/internal/api"
)

const (
	maxAutoLearnAnswer = 500

	chatNetworkFailure   = "Network error! Please try again."
	searchNetworkFailure = "Search error!"
	searchEmptyContent   = "No information found"
	autoLearnFailure     = "Could not teach this result!"
)

// Send posts one chat message. The search heuristic is forwarded as an
// advisory hint; whether a search actually runs is up to the service.
func (o *Orchestrator) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, &ValidationError{Field: "message"}
	}
	gen := o.current()
	o.appendMessage(gen, newMessage(SenderUser, KindUser, text, nil))

	hint := o.heuristic.ShouldSearch(text)
	done := o.loading("Looking for an answer…")
	reply, err := o.client.Chat(ctx, api.ChatRequest{Message: text, WebSearch: hint})
	done()
	o.logger.Debug("chat completed", zap.Bool("webSearchHint", hint), zap.Error(err))

	if err != nil {
		return o.appendFailure(gen, err, chatNetworkFailure, "Error: %s")
	}
	msg, ok := o.appendMessage(gen, newMessage(SenderBot, ParseKind(reply.Type), reply.Response, sourcesFromResults(reply.Sources)))
	if !ok {
		return msg, ErrSessionEnded
	}
	if reply.TrustScore != nil {
		score := clampTrust(*reply.TrustScore)
		o.updateState(gen, func(s *State) { s.TrustScore = score })
	}
	_ = o.refresh(ctx, gen)
	return msg, nil
}

// WebSearch runs an explicit web search and answers in the transcript with
// the first hit.
func (o *Orchestrator) WebSearch(ctx context.Context, query string) (Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Message{}, &ValidationError{Field: "query"}
	}
	gen := o.current()
	o.appendMessage(gen, newMessage(SenderUser, KindUser, "[web search] "+query, nil))

	done := o.loading("Searching the web…")
	reply, err := o.client.WebSearch(ctx, query)
	done()
	if err != nil {
		return o.appendFailure(gen, err, searchNetworkFailure, "Search error: %s")
	}

	msg := newMessage(SenderBot, KindWebSearch, "", nil)
	if len(reply.Results) > 0 {
		body := reply.Results[0].Content
		if strings.TrimSpace(body) == "" {
			body = searchEmptyContent
		}
		msg = newMessage(SenderBot, KindWebSearch, body, sourcesFromResults(reply.Results))
	}
	if _, ok := o.appendMessage(gen, msg); !ok {
		return msg, ErrSessionEnded
	}
	_ = o.refresh(ctx, gen)
	return msg, nil
}

// DirectSearch runs a web search for the search tab. Nothing is appended to
// the transcript; zero results is an empty slice.
func (o *Orchestrator) DirectSearch(ctx context.Context, query string) ([]Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "query"}
	}
	gen := o.current()
	done := o.loading("Searching…")
	reply, err := o.client.WebSearch(ctx, query)
	done()
	if err != nil {
		o.logger.Warn("direct search failed", zap.Error(err))
		return nil, err
	}
	results := sourcesFromResults(reply.Results)
	o.mu.Lock()
	live := gen == o.generation
	if live {
		o.gateway.RenderSearchResults(results)
	}
	o.mu.Unlock()
	if !live {
		o.logger.Info("dropped search results for an ended session", zap.Uint64("generation", gen))
		return nil, ErrSessionEnded
	}
	_ = o.refresh(ctx, gen)
	return results, nil
}

// AutoLearn teaches the service a search result. The answer is clipped to
// 500 characters.
func (o *Orchestrator) AutoLearn(ctx context.Context, question, answer, source string) (string, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" {
		return "", &ValidationError{Field: "question"}
	}
	if answer == "" {
		return "", &ValidationError{Field: "answer"}
	}
	release, err := o.acquire("auto_learn")
	if err != nil {
		return "", err
	}
	defer release()

	if runes := []rune(answer); len(runes) > maxAutoLearnAnswer {
		answer = string(runes[:maxAutoLearnAnswer])
	}
	reply, err := o.client.AutoLearn(ctx, api.AutoLearnRequest{Question: question, Answer: answer, Source: source})
	if err != nil {
		o.notifyFailure(err, autoLearnFailure)
		return "", err
	}
	o.gateway.Notify(reply.Message)
	return reply.Message, nil
}

// appendFailure turns a failed call into an error-kind transcript message
// and returns err, or ErrSessionEnded when the session has gone.
func (o *Orchestrator) appendFailure(gen uint64, err error, networkText, serviceFormat string) (Message, error) {
	text := networkText
	var serviceErr *api.ServiceError
	if errors.As(err, &serviceErr) {
		text = fmt.Sprintf(serviceFormat, serviceErr.Message)
	}
	o.logger.Warn("operation failed", zap.Error(err))
	msg, ok := o.appendMessage(gen, newMessage(SenderBot, KindError, text, nil))
	if !ok {
		return msg, ErrSessionEnded
	}
	return msg, err
}

// notifyFailure shows the service's own error text when there is one and
// fallback otherwise.
func (o *Orchestrator) notifyFailure(err error, fallback string) {
	var serviceErr *api.ServiceError
	if errors.As(err, &serviceErr) && strings.TrimSpace(serviceErr.Message) != "" {
		o.gateway.Notify(serviceErr.Message)
		return
	}
	o.gateway.Notify(fallback)
}
