package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/csheth/bnchat/internal/api"
)

// TeachPhase is a state of the teaching workflow.
type TeachPhase int

const (
	PhaseIdle TeachPhase = iota
	PhaseSubmitted
	PhaseConflicted
	PhaseAccepted
	PhaseOverridden
	PhaseAbandoned
	PhaseRejected
)

func (p TeachPhase) String() string {
	switch p {
	case PhaseSubmitted:
		return "submitted"
	case PhaseConflicted:
		return "conflicted"
	case PhaseAccepted:
		return "accepted"
	case PhaseOverridden:
		return "overridden"
	case PhaseAbandoned:
		return "abandoned"
	case PhaseRejected:
		return "rejected"
	default:
		return "idle"
	}
}

const (
	teachNetworkFailure = "Teaching failed!"
	overrideFallback    = "Updated!"
)

// TeachOutcome is the terminal result of one Teach call.
type TeachOutcome struct {
	Phase          TeachPhase
	Message        string
	ExistingAnswer string
}

// ClearsInput reports whether the front end should empty its teach fields.
func (t TeachOutcome) ClearsInput() bool {
	return t.Phase == PhaseAccepted || t.Phase == PhaseOverridden
}

type teaching struct {
	phase TeachPhase
}

// TeachPhase reports where the teaching workflow currently is.
func (o *Orchestrator) TeachPhase() TeachPhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.teach.phase
}

func (o *Orchestrator) setPhase(phase TeachPhase) {
	o.mu.Lock()
	previous := o.teach.phase
	o.teach.phase = phase
	o.mu.Unlock()
	o.logger.Debug("teach transition", zap.Stringer("from", previous), zap.Stringer("to", phase))
}

// Teach submits a question/answer pair. A conflicting stored answer is put to
// the user through Gateway.Confirm before anything else is sent.
func (o *Orchestrator) Teach(ctx context.Context, question, answer string) (TeachOutcome, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" {
		return TeachOutcome{Phase: PhaseIdle}, &ValidationError{Field: "question"}
	}
	if answer == "" {
		return TeachOutcome{Phase: PhaseIdle}, &ValidationError{Field: "answer"}
	}
	release, err := o.acquire("learn")
	if err != nil {
		return TeachOutcome{Phase: PhaseIdle}, err
	}
	defer release()
	defer o.setPhase(PhaseIdle)

	gen := o.current()
	o.setPhase(PhaseSubmitted)
	reply, err := o.client.Learn(ctx, api.LearnRequest{Question: question, Answer: answer})
	if err != nil {
		o.notifyFailure(err, teachNetworkFailure)
		return TeachOutcome{Phase: PhaseIdle}, fmt.Errorf("teach: %w", err)
	}

	switch {
	case reply.Success:
		o.setPhase(PhaseAccepted)
		o.gateway.Notify(reply.Message)
		o.recordLearned(ctx, gen, question, answer)
		return TeachOutcome{Phase: PhaseAccepted, Message: reply.Message}, nil
	case reply.ExistingAnswer != "":
		return o.resolveConflict(ctx, gen, question, answer, reply.ExistingAnswer)
	default:
		o.setPhase(PhaseRejected)
		o.gateway.Notify(reply.Message)
		return TeachOutcome{Phase: PhaseRejected, Message: reply.Message},
			&DomainRejection{Op: "learn", Message: reply.Message}
	}
}

func (o *Orchestrator) resolveConflict(ctx context.Context, gen uint64, question, answer, existing string) (TeachOutcome, error) {
	o.setPhase(PhaseConflicted)
	confirmed, err := o.gateway.Confirm(ctx, Prompt{
		Kind:     PromptOverride,
		Question: question,
		Existing: existing,
		Proposed: answer,
	})
	if err != nil || !confirmed {
		o.setPhase(PhaseAbandoned)
		if err != nil {
			o.logger.Info("override decision aborted", zap.Error(err))
		}
		return TeachOutcome{Phase: PhaseAbandoned, ExistingAnswer: existing}, nil
	}

	reply, err := o.client.Learn(ctx, api.LearnRequest{Question: question, Answer: answer, Override: true})
	if err != nil {
		o.notifyFailure(err, teachNetworkFailure)
		return TeachOutcome{Phase: PhaseIdle, ExistingAnswer: existing}, fmt.Errorf("teach override: %w", err)
	}
	if !reply.Success {
		o.setPhase(PhaseRejected)
		o.gateway.Notify(reply.Message)
		return TeachOutcome{Phase: PhaseRejected, Message: reply.Message, ExistingAnswer: existing},
			&DomainRejection{Op: "learn", Message: reply.Message}
	}

	o.setPhase(PhaseOverridden)
	notice := reply.Message
	if strings.TrimSpace(notice) == "" {
		notice = overrideFallback
	}
	o.gateway.Notify(notice)
	o.recordLearned(ctx, gen, question, answer)
	return TeachOutcome{Phase: PhaseOverridden, Message: reply.Message, ExistingAnswer: existing}, nil
}

// recordLearned leaves learning mode, logs the new pair and refreshes counters.
func (o *Orchestrator) recordLearned(ctx context.Context, gen uint64, question, answer string) {
	o.updateState(gen, func(s *State) { s.LearningMode = false })
	o.appendMessage(gen, newMessage(SenderBot, KindLearned, fmt.Sprintf("Learned: %s → %s", question, answer), nil))
	_ = o.refresh(ctx, gen)
}
