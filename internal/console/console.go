// Package console renders a session on a plain terminal for the one-shot
// subcommands.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/fatih/color"

	"github.com/csheth/bnchat/internal/session"
)

const snippetLimit = 200

// Options configures a Console.
type Options struct {
	Out io.Writer
	// Status receives the loading indicator; nil discards it.
	Status io.Writer
	In     io.Reader
	// AssumeYes answers every confirmation with yes.
	AssumeYes bool
	// Plain disables colour and terminal style detection.
	Plain bool
	Width int
}

// Console is a session.Gateway that writes to a stream and reads yes/no
// answers from another.
type Console struct {
	out       io.Writer
	status    io.Writer
	in        *bufio.Reader
	assumeYes bool
	renderer  *glamour.TermRenderer

	bot    *color.Color
	user   *color.Color
	system *color.Color
	notice *color.Color
	faint  *color.Color

	mu    sync.Mutex
	state session.State
}

var _ session.Gateway = (*Console)(nil)

// New returns a Console.
func New(opts Options) *Console {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	status := opts.Status
	if status == nil {
		status = io.Discard
	}
	in := opts.In
	if in == nil {
		in = strings.NewReader("")
	}
	c := &Console{
		out:       opts.Out,
		status:    status,
		in:        bufio.NewReader(in),
		assumeYes: opts.AssumeYes,
		renderer:  newRenderer(opts.Plain, width),
		bot:       color.New(color.FgCyan, color.Bold),
		user:      color.New(color.FgGreen, color.Bold),
		system:    color.New(color.FgMagenta),
		notice:    color.New(color.FgYellow),
		faint:     color.New(color.FgHiBlack),
	}
	if opts.Plain {
		for _, col := range []*color.Color{c.bot, c.user, c.system, c.notice, c.faint} {
			col.DisableColor()
		}
	}
	return c
}

func newRenderer(plain bool, width int) *glamour.TermRenderer {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle(styles.NoTTYStyle)
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return renderer
}

func (c *Console) markdown(text string) string {
	if c.renderer == nil {
		return text
	}
	out, err := c.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// RenderMessage prints bot and system messages. The welcome text and the
// echo of the user's own input are skipped.
func (c *Console) RenderMessage(msg session.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case msg.Kind == session.KindWelcome, msg.Sender == session.SenderUser:
		return
	case msg.Sender == session.SenderSystem:
		c.system.Fprintf(c.out, "%s\n", msg.Text)
		return
	}

	c.bot.Fprintf(c.out, "[%s] ", msg.Kind.Label())
	text := msg.Text
	if strings.TrimSpace(text) == "" {
		text = "_(no answer)_"
	}
	fmt.Fprintln(c.out, c.markdown(text))
	for i, source := range msg.Sources {
		c.faint.Fprintf(c.out, "  %d. %s %s\n", i+1, source.DisplayTitle(), source.URL)
	}
}

// RenderSearchResults prints a numbered result list.
func (c *Console) RenderSearchResults(results []session.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(results) == 0 {
		c.notice.Fprintln(c.out, "No results found.")
		return
	}
	for i, result := range results {
		c.bot.Fprintf(c.out, "%d. %s\n", i+1, result.DisplayTitle())
		if result.URL != "" {
			c.faint.Fprintf(c.out, "   %s\n", result.URL)
		}
		fmt.Fprintf(c.out, "   %s\n", result.Snippet(snippetLimit))
	}
}

// RenderStatsSummary prints the summary text as is.
func (c *Console) RenderStatsSummary(summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, summary)
}

// RenderState keeps the latest state for the closing status line.
func (c *Console) RenderState(state session.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// State returns the last rendered state.
func (c *Console) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PrintStatus writes a one-line summary of the trust and search meters.
func (c *Console) PrintStatus() {
	state := c.State()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faint.Fprintf(c.out, "trust %d%% · searches %d/%d\n", state.TrustScore, state.SearchCount, state.SearchQuota)
}

// Notify prints a notice line.
func (c *Console) Notify(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice.Fprintf(c.out, "! %s\n", text)
}

// Confirm asks a y/N question on the input stream. End of input declines.
func (c *Console) Confirm(ctx context.Context, prompt session.Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice.Fprintf(c.out, "%s [y/N]: ", prompt.Text())
	if c.assumeYes {
		fmt.Fprintln(c.out, "y")
		return true, nil
	}
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(c.out)
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "হ্যাঁ":
		return true, nil
	default:
		return false, nil
	}
}

// ShowLoading writes the label to the status stream.
func (c *Console) ShowLoading(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faint.Fprintf(c.status, "%s\n", label)
}

func (c *Console) HideLoading() {}

// Reset announces the new session.
func (c *Console) Reset(state session.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.Notify("Started a new session.")
}
