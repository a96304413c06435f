package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/bnchat/internal/session"
)

// Gateway forwards session output into a running Program. Calls made before
// Attach are dropped; the model seeds itself from the orchestrator instead.
// Messages are queued and delivered in order by one goroutine, so a call made
// from inside Update never waits on the event loop.
type Gateway struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []tea.Msg
	wake    chan struct{}
	done    chan struct{}
}

var _ session.Gateway = (*Gateway)(nil)

// NewGateway returns a detached Gateway.
func NewGateway() *Gateway {
	return &Gateway{wake: make(chan struct{}, 1)}
}

// Attach routes every later call to program.
func (g *Gateway) Attach(program *tea.Program) {
	g.attach(program.Send)
}

// Detach stops forwarding. Queued messages that were not delivered yet are
// dropped.
func (g *Gateway) Detach() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		close(g.done)
		g.done = nil
	}
	g.send = nil
	g.pending = nil
}

func (g *Gateway) attach(send func(tea.Msg)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done != nil {
		close(g.done)
	}
	g.send = send
	g.done = make(chan struct{})
	go g.pump(send, g.done)
}

func (g *Gateway) pump(send func(tea.Msg), done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-g.wake:
		}
		g.mu.Lock()
		batch := g.pending
		g.pending = nil
		g.mu.Unlock()
		for _, msg := range batch {
			send(msg)
		}
	}
}

func (g *Gateway) post(msg tea.Msg) bool {
	g.mu.Lock()
	if g.send == nil {
		g.mu.Unlock()
		return false
	}
	g.pending = append(g.pending, msg)
	g.mu.Unlock()
	select {
	case g.wake <- struct{}{}:
	default:
	}
	return true
}

type messageMsg struct{ message session.Message }

type resultsMsg struct{ results []session.Source }

type statsMsg struct{ summary string }

type stateMsg struct{ state session.State }

type noticeMsg struct{ text string }

type loadingMsg struct {
	label  string
	active bool
}

type resetMsg struct{ state session.State }

// confirmMsg carries a pending decision. The model answers on reply exactly
// once.
type confirmMsg struct {
	prompt session.Prompt
	reply  chan bool
}

func (g *Gateway) RenderMessage(msg session.Message) { g.post(messageMsg{message: msg}) }

func (g *Gateway) RenderSearchResults(results []session.Source) {
	g.post(resultsMsg{results: append([]session.Source(nil), results...)})
}

func (g *Gateway) RenderStatsSummary(summary string) { g.post(statsMsg{summary: summary}) }

func (g *Gateway) RenderState(state session.State) { g.post(stateMsg{state: state}) }

func (g *Gateway) Notify(text string) { g.post(noticeMsg{text: text}) }

func (g *Gateway) ShowLoading(label string) { g.post(loadingMsg{label: label, active: true}) }

func (g *Gateway) HideLoading() { g.post(loadingMsg{}) }

func (g *Gateway) Reset(state session.State) { g.post(resetMsg{state: state}) }

// Confirm shows a modal and waits for the answer. A detached gateway or a
// done context declines.
func (g *Gateway) Confirm(ctx context.Context, prompt session.Prompt) (bool, error) {
	reply := make(chan bool, 1)
	if !g.post(confirmMsg{prompt: prompt, reply: reply}) {
		return false, nil
	}
	select {
	case answer := <-reply:
		return answer, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
