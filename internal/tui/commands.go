package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/bnchat/internal/session"
)

// Operations is the part of the orchestrator the TUI drives.
type Operations interface {
	Send(ctx context.Context, text string) (session.Message, error)
	WebSearch(ctx context.Context, query string) (session.Message, error)
	DirectSearch(ctx context.Context, query string) ([]session.Source, error)
	Teach(ctx context.Context, question, answer string) (session.TeachOutcome, error)
	AutoLearn(ctx context.Context, question, answer, source string) (string, error)
	Undo(ctx context.Context) (session.UndoResult, error)
	Reset(ctx context.Context) error
	RefreshStats(ctx context.Context) (session.Summary, error)
	Sync(ctx context.Context) error
	ToggleLearningMode() bool
	SwitchTab(tab session.Tab)
	State() session.State
	Transcript() []session.Message
}

var _ Operations = (*session.Orchestrator)(nil)

type sendResultMsg struct {
	kind jobKind
	err  error
}

type directSearchResultMsg struct {
	query   string
	results []session.Source
	err     error
}

type teachResultMsg struct {
	outcome session.TeachOutcome
	err     error
}

type autoLearnResultMsg struct {
	message string
	err     error
}

type undoResultMsg struct {
	result session.UndoResult
	err    error
}

type resetResultMsg struct {
	err error
}

type syncResultMsg struct {
	err error
}

type statsResultMsg struct {
	summary session.Summary
	err     error
}

func sendJob(ops Operations, text string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		_, err := ops.Send(ctx, text)
		return sendResultMsg{kind: jobKindSend, err: err}, err
	}
}

func webSearchJob(ops Operations, query string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		_, err := ops.WebSearch(ctx, query)
		return sendResultMsg{kind: jobKindWebSearch, err: err}, err
	}
}

func directSearchJob(ops Operations, query string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		results, err := ops.DirectSearch(ctx, query)
		return directSearchResultMsg{query: query, results: results, err: err}, err
	}
}

func teachJob(ops Operations, question, answer string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		outcome, err := ops.Teach(ctx, question, answer)
		return teachResultMsg{outcome: outcome, err: err}, err
	}
}

func autoLearnJob(ops Operations, question string, source session.Source) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		message, err := ops.AutoLearn(ctx, question, source.Content, source.URL)
		return autoLearnResultMsg{message: message, err: err}, err
	}
}

func undoJob(ops Operations) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		result, err := ops.Undo(ctx)
		return undoResultMsg{result: result, err: err}, err
	}
}

func resetJob(ops Operations) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := ops.Reset(ctx)
		return resetResultMsg{err: err}, err
	}
}

func statsJob(ops Operations) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		summary, err := ops.RefreshStats(ctx)
		return statsResultMsg{summary: summary, err: err}, err
	}
}

func syncJob(ops Operations) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		err := ops.Sync(ctx)
		return syncResultMsg{err: err}, err
	}
}
