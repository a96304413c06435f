package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/csheth/bnchat/internal/api"
)

const (
	undoNetworkFailure  = "Undo failed!"
	resetNetworkFailure = "Reset failed!"
	archiveFailure      = "Could not archive the previous session."
)

// UndoResult reports what Undo did.
type UndoResult struct {
	Declined bool
	Success  bool
	Message  string
}

// Undo asks for confirmation and then reverts the most recent learning.
func (o *Orchestrator) Undo(ctx context.Context) (UndoResult, error) {
	release, err := o.acquire("undo")
	if err != nil {
		return UndoResult{}, err
	}
	defer release()

	confirmed, err := o.gateway.Confirm(ctx, Prompt{Kind: PromptUndo})
	if err != nil || !confirmed {
		return UndoResult{Declined: true}, nil
	}

	gen := o.current()
	reply, err := o.client.Undo(ctx)
	if err != nil {
		o.notifyFailure(err, undoNetworkFailure)
		return UndoResult{}, fmt.Errorf("undo: %w", err)
	}
	o.gateway.Notify(reply.Message)
	_ = o.refresh(ctx, gen)
	if !reply.Success {
		return UndoResult{Message: reply.Message}, &DomainRejection{Op: "undo", Message: reply.Message}
	}
	o.appendMessage(gen, newMessage(SenderSystem, KindSystem, reply.Message, nil))
	return UndoResult{Success: true, Message: reply.Message}, nil
}

// Reset asks for confirmation, clears the service session and then starts a
// brand new client session. The old session is archived first.
func (o *Orchestrator) Reset(ctx context.Context) error {
	release, err := o.acquire("reset")
	if err != nil {
		return err
	}
	defer release()

	confirmed, err := o.gateway.Confirm(ctx, Prompt{Kind: PromptReset})
	if err != nil || !confirmed {
		return ErrDeclined
	}

	reply, err := o.client.ResetSession(ctx)
	if err != nil {
		o.gateway.Notify(resetNetworkFailure)
		return fmt.Errorf("reset: %w", err)
	}
	if !reply.Success {
		o.gateway.Notify(resetNetworkFailure)
		return &DomainRejection{Op: "reset", Message: reply.Message}
	}

	if err := o.archive("reset"); err != nil {
		o.gateway.Notify(archiveFailure)
	}
	previous := o.State().ID
	gen := o.begin(true)
	o.logger.Info("session reset", zap.String("previous", previous), zap.String("session", o.State().ID))
	_ = o.refresh(ctx, gen)
	return nil
}

// Summary merges knowledge and search statistics for display.
type Summary struct {
	TotalLearned    int
	SmartKnowledge  int
	TodayLearned    int
	TotalUsers      int
	SearchCount     int
	SearchRemaining int
	UndoAvailable   int
	TotalLogs       int
	TrustScore      int
	CacheSize       int
}

func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("Bot statistics\n\n")
	b.WriteString("Knowledge\n")
	fmt.Fprintf(&b, "  • Total learned: %d\n", s.TotalLearned)
	fmt.Fprintf(&b, "  • Smart knowledge: %d\n", s.SmartKnowledge)
	fmt.Fprintf(&b, "  • Learned today: %d\n", s.TodayLearned)
	fmt.Fprintf(&b, "  • Total users: %d\n\n", s.TotalUsers)
	b.WriteString("Search\n")
	fmt.Fprintf(&b, "  • Searches today: %d\n", s.SearchCount)
	fmt.Fprintf(&b, "  • Searches left: %d\n", s.SearchRemaining)
	fmt.Fprintf(&b, "  • Undo available: %d\n\n", s.UndoAvailable)
	b.WriteString("Usage\n")
	fmt.Fprintf(&b, "  • Total interactions: %d\n", s.TotalLogs)
	fmt.Fprintf(&b, "  • Trust score: %d%%\n", s.TrustScore)
	fmt.Fprintf(&b, "  • Cache size: %d", s.CacheSize)
	return b.String()
}

// RefreshStats reads knowledge and search statistics concurrently. Only the
// cached search counters and trust score are updated.
func (o *Orchestrator) RefreshStats(ctx context.Context) (Summary, error) {
	gen := o.current()
	var (
		knowledge api.KnowledgeStats
		search    api.SearchStats
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		stats, err := o.client.KnowledgeStats(groupCtx)
		if err != nil {
			return err
		}
		knowledge = stats
		return nil
	})
	group.Go(func() error {
		stats, err := o.client.SearchStats(groupCtx)
		if err != nil {
			return err
		}
		search = stats
		return nil
	})
	if err := group.Wait(); err != nil {
		o.gateway.Notify("Could not load statistics!")
		return Summary{}, fmt.Errorf("refresh stats: %w", err)
	}

	state, ok := o.updateState(gen, func(s *State) { applySearchStats(s, search) })
	if !ok {
		return Summary{}, ErrSessionEnded
	}
	summary := Summary{
		TotalLearned:    knowledge.TotalLearned,
		SmartKnowledge:  knowledge.SmartKnowledge,
		TodayLearned:    knowledge.TodayLearned,
		TotalUsers:      knowledge.TotalUsers,
		SearchCount:     search.SearchCount,
		SearchRemaining: search.Remaining,
		UndoAvailable:   knowledge.UndoAvailable,
		TotalLogs:       knowledge.TotalLogs,
		TrustScore:      state.TrustScore,
		CacheSize:       knowledge.CacheSize,
	}
	o.gateway.RenderStatsSummary(summary.String())
	return summary, nil
}
