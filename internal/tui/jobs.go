package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type jobKind string

type jobStatus string

const (
	jobKindSend         jobKind = "send"
	jobKindWebSearch    jobKind = "web_search"
	jobKindDirectSearch jobKind = "direct_search"
	jobKindTeach        jobKind = "teach"
	jobKindAutoLearn    jobKind = "auto_learn"
	jobKindUndo         jobKind = "undo"
	jobKindReset        jobKind = "reset"
	jobKindStats        jobKind = "stats"
	jobKindSync         jobKind = "sync"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs session operations off the UI loop. Every job shares ctx, so
// cancelling it releases anything blocked on a confirmation.
type jobBus struct {
	counter int64
	running int64
	ctx     context.Context
	logger  *zap.Logger
}

func newJobBus(ctx context.Context, logger *zap.Logger) *jobBus {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobBus{ctx: ctx, logger: logger.With(zap.String("component", "jobs"))}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

// Running reports how many jobs have started and not yet finished.
func (b *jobBus) Running() int {
	return int(atomic.LoadInt64(&b.running))
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	startCmd, runCmd := b.commands(kind, runner)
	return tea.Sequence(startCmd, runCmd)
}

func (b *jobBus) commands(kind jobKind, runner jobRunner) (tea.Cmd, tea.Cmd) {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	atomic.AddInt64(&b.running, 1)
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		defer atomic.AddInt64(&b.running, -1)
		payload, err := runner(b.ctx)
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = jobStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		b.logger.Debug("job finished",
			zap.String("id", id),
			zap.String("kind", string(kind)),
			zap.String("status", string(snapshot.Status)),
			zap.Duration("duration", snapshot.Duration),
			zap.Error(err),
		)
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return startCmd, runCmd
}
