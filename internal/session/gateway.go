package session

import (
	"context"
	"fmt"
)

// Gateway renders session output. Implementations must be safe to call from
// the goroutine running an operation.
type Gateway interface {
	RenderMessage(msg Message)
	RenderSearchResults(results []Source)
	RenderStatsSummary(summary string)
	RenderState(state State)
	// Notify shows a transient, dismissable notice.
	Notify(text string)
	// Confirm blocks until the user answers the prompt or ctx is done.
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
	ShowLoading(label string)
	HideLoading()
	// Reset clears everything rendered for the previous session.
	Reset(state State)
}

// PromptKind identifies which decision is being asked for.
type PromptKind int

const (
	PromptOverride PromptKind = iota
	PromptUndo
	PromptReset
)

// Prompt is a yes/no question put to the user.
type Prompt struct {
	Kind     PromptKind
	Question string
	Existing string
	Proposed string
}

// Text renders the prompt as plain text.
func (p Prompt) Text() string {
	switch p.Kind {
	case PromptOverride:
		return fmt.Sprintf("This question already has an answer:\n  %q\n\nYour answer:\n  %q\n\nKeep your answer?", p.Existing, p.Proposed)
	case PromptUndo:
		return "Discard the most recently learned item?"
	case PromptReset:
		return "Reset the session? This also resets your trust score."
	default:
		return p.Question
	}
}

// NopGateway discards all output and declines every confirmation.
type NopGateway struct{}

func (NopGateway) RenderMessage(Message)        {}
func (NopGateway) RenderSearchResults([]Source) {}
func (NopGateway) RenderStatsSummary(string)    {}
func (NopGateway) RenderState(State)            {}
func (NopGateway) Notify(string)                {}
func (NopGateway) ShowLoading(string)           {}
func (NopGateway) HideLoading()                 {}
func (NopGateway) Reset(State)                  {}

func (NopGateway) Confirm(context.Context, Prompt) (bool, error) {
	return false, nil
}
