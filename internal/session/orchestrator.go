// Package session holds the client-side orchestration rules of a bnchat
// session: when a search is requested, how teaching conflicts resolve, and
// how the cached counters stay in line with the service.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/csheth/bnchat/internal/api"
)

const welcomeText = `Welcome to bnchat!

What I can do:
  • chat naturally in Bengali
  • fetch fresh information from the web
  • learn new answers from you and remember them
  • keep the conversation safe
  • get better over time

Ask me anything and I will do my best to answer.`

// Options configures an Orchestrator.
type Options struct {
	Client      api.Client
	Gateway     Gateway
	Logger      *zap.Logger
	Heuristic   Heuristic
	SearchQuota int
	Archiver    Archiver
}

// Archiver stores the transcript of a session that has ended.
type Archiver interface {
	Archive(record Record) error
}

// Record describes an ended session.
type Record struct {
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
	Reason    string
	State     State
	Messages  []Message
}

// Orchestrator owns one session: its State, its transcript and the teaching
// workflow. All operations are safe for concurrent use.
type Orchestrator struct {
	client    api.Client
	gateway   Gateway
	logger    *zap.Logger
	heuristic Heuristic
	quota     int
	archiver  Archiver

	// mu guards the live session. Gateway render calls for it are made while
	// holding mu so output of an ended session cannot follow Gateway.Reset.
	mu         sync.Mutex
	generation uint64
	state      State
	transcript *Transcript
	startedAt  time.Time
	teach      teaching

	// gate admits one state-mutating remote call (learn, undo, reset) at a time.
	gate sync.Mutex
}

// New starts a fresh session.
func New(opts Options) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.New("session: service client is required")
	}
	gateway := opts.Gateway
	if gateway == nil {
		gateway = NopGateway{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heuristic := opts.Heuristic
	if len(heuristic.tokens) == 0 {
		heuristic = NewHeuristic()
	}
	quota := opts.SearchQuota
	if quota <= 0 {
		quota = DefaultSearchQuota
	}
	o := &Orchestrator{
		client:    opts.Client,
		gateway:   gateway,
		logger:    logger.With(zap.String("component", "session")),
		heuristic: heuristic,
		quota:     quota,
		archiver:  opts.Archiver,
	}
	o.begin(false)
	return o, nil
}

// begin replaces every piece of per-session state and returns the new
// generation. A reset clears the front end before the welcome message of the
// new session is rendered.
func (o *Orchestrator) begin(reset bool) uint64 {
	state := NewState(o.quota)
	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.state = state
	o.transcript = NewTranscript()
	o.startedAt = time.Now()
	o.teach = teaching{}
	o.client.SetSessionID(state.ID)
	if reset {
		o.gateway.Reset(state)
	}
	o.mu.Unlock()

	o.logger.Info("session started", zap.String("session", state.ID))
	o.appendMessage(gen, newMessage(SenderBot, KindWelcome, welcomeText, nil))
	o.mu.Lock()
	if gen == o.generation {
		o.gateway.RenderState(o.state)
	}
	o.mu.Unlock()
	return gen
}

// current returns the generation of the live session. Operations capture it
// before their remote call; replies for an older generation are dropped.
func (o *Orchestrator) current() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation
}

// State returns a snapshot of the session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transcript returns a copy of the messages appended so far.
func (o *Orchestrator) Transcript() []Message {
	o.mu.Lock()
	transcript := o.transcript
	o.mu.Unlock()
	return transcript.Messages()
}

// Heuristic returns the search heuristic in use.
func (o *Orchestrator) Heuristic() Heuristic {
	return o.heuristic
}

// ToggleLearningMode flips learning mode and returns the new value.
func (o *Orchestrator) ToggleLearningMode() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.LearningMode = !o.state.LearningMode
	o.gateway.RenderState(o.state)
	return o.state.LearningMode
}

// SwitchTab records the active front-end tab.
func (o *Orchestrator) SwitchTab(tab Tab) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.ActiveTab = tab
	o.gateway.RenderState(o.state)
}

// Close archives the live session.
func (o *Orchestrator) Close() error {
	return o.archive("closed")
}

// Sync re-reads the search counters of the live session from the service.
func (o *Orchestrator) Sync(ctx context.Context) error {
	return o.refresh(ctx, o.current())
}

// appendMessage adds msg to the transcript of session gen. It reports false,
// and changes nothing, when that session has ended.
func (o *Orchestrator) appendMessage(gen uint64, msg Message) (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		o.logger.Info("dropped message for an ended session",
			zap.Stringer("kind", msg.Kind), zap.Uint64("generation", gen))
		return msg, false
	}
	o.transcript.Append(msg)
	o.gateway.RenderMessage(msg)
	return msg, true
}

// updateState mutates the state of session gen, unless it has ended.
func (o *Orchestrator) updateState(gen uint64, mutate func(*State)) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		o.logger.Info("dropped state update for an ended session", zap.Uint64("generation", gen))
		return o.state, false
	}
	mutate(&o.state)
	o.gateway.RenderState(o.state)
	return o.state, true
}

// refresh re-reads the authoritative search counters. Failures leave the
// cached values untouched.
func (o *Orchestrator) refresh(ctx context.Context, gen uint64) error {
	if gen != o.current() {
		return ErrSessionEnded
	}
	stats, err := o.client.SearchStats(ctx)
	if err != nil {
		o.logger.Warn("state refresh failed", zap.Error(err))
		return err
	}
	if _, ok := o.updateState(gen, func(s *State) { applySearchStats(s, stats) }); !ok {
		return ErrSessionEnded
	}
	return nil
}

func applySearchStats(s *State, stats api.SearchStats) {
	s.SearchCount = stats.SearchCount
	s.SearchRemaining = stats.Remaining
	if stats.TrustScore != nil {
		s.TrustScore = clampTrust(*stats.TrustScore)
	}
}

func (o *Orchestrator) loading(label string) func() {
	o.gateway.ShowLoading(label)
	return o.gateway.HideLoading
}

// acquire takes the mutating gate without waiting.
func (o *Orchestrator) acquire(op string) (func(), error) {
	if !o.gate.TryLock() {
		o.logger.Info("mutating operation refused", zap.String("op", op))
		return nil, ErrOperationInFlight
	}
	return o.gate.Unlock, nil
}

func (o *Orchestrator) archive(reason string) error {
	if o.archiver == nil {
		return nil
	}
	o.mu.Lock()
	record := Record{
		SessionID: o.state.ID,
		StartedAt: o.startedAt,
		EndedAt:   time.Now(),
		Reason:    reason,
		State:     o.state,
		Messages:  o.transcript.Messages(),
	}
	o.mu.Unlock()
	if err := o.archiver.Archive(record); err != nil {
		o.logger.Warn("archive failed", zap.String("session", record.SessionID), zap.Error(err))
		return err
	}
	return nil
}
