package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/bnchat/internal/session"
)

const maxInlineSources = 3

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	inputWidth     int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		inputWidth:     70,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	l.inputWidth = innerWidth - 6
	// header (3) + tabs (1) + composer (3) + status (1) + legend (1)
	const chrome = 9
	contentHeight := height - chrome
	if contentHeight < 5 {
		contentHeight = 5
	}
	l.viewportHeight = contentHeight
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewport.SetContent(renderTranscript(m.messages, m.viewport.Width))
	if m.followTail {
		m.viewport.GotoBottom()
	}
	m.viewportDirty = false
}

func renderTranscript(messages []session.Message, width int) string {
	if len(messages) == 0 {
		return helperStyle.Render("Messages will appear here.")
	}
	wrap := width - 2
	if wrap < 20 {
		wrap = 20
	}
	var cb contentBuilder
	for idx, msg := range messages {
		if idx > 0 {
			cb.WriteRune('\n')
		}
		cb.WriteString(messageHeader(msg))
		cb.WriteRune('\n')
		cb.WriteString(messageBody(msg, wrap))
		cb.WriteRune('\n')
		writeInlineSources(&cb, msg.Sources, wrap)
	}
	return strings.TrimRight(cb.String(), "\n")
}

func messageHeader(msg session.Message) string {
	stamp := msg.Timestamp.Format("15:04")
	switch msg.Sender {
	case session.SenderUser:
		return userLabelStyle.Render(msg.Sender.String()) + " " + helperStyle.Render(stamp)
	case session.SenderSystem:
		return systemLabelStyle.Render(msg.Sender.String()) + " " + helperStyle.Render(stamp)
	}
	badge := kindBadgeStyle(msg.Kind).Render(msg.Kind.Label())
	return botLabelStyle.Render(msg.Sender.String()) + " " + badge + " " + helperStyle.Render(stamp)
}

func messageBody(msg session.Message, wrap int) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		if msg.Kind == session.KindWebSearch {
			return helperStyle.Render("No results found.")
		}
		return helperStyle.Render("(empty)")
	}
	wrapped := wordwrap.String(text, wrap)
	if msg.Kind == session.KindError {
		return errorStyle.Render(wrapped)
	}
	return wrapped
}

func writeInlineSources(cb *contentBuilder, sources []session.Source, wrap int) {
	for idx, source := range sources {
		if idx == maxInlineSources {
			cb.WriteString(helperStyle.Render(fmt.Sprintf("  +%d more (ctrl+o)", len(sources)-maxInlineSources)))
			cb.WriteRune('\n')
			return
		}
		line := "  ↳ " + source.DisplayTitle()
		if source.URL != "" && source.URL != source.DisplayTitle() {
			line += " (" + source.URL + ")"
		}
		cb.WriteString(sourceStyle.Render(wordwrap.String(line, wrap)))
		cb.WriteRune('\n')
	}
}

func renderSourceList(sources []session.Source, width int) string {
	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}
	var cb contentBuilder
	cb.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Sources (%d)", len(sources))))
	cb.WriteRune('\n')
	for idx, source := range sources {
		cb.WriteRune('\n')
		cb.WriteString(fmt.Sprintf("%d. %s", idx+1, source.DisplayTitle()))
		cb.WriteRune('\n')
		if source.URL != "" {
			cb.WriteString(sourceStyle.Render("   " + source.URL))
			cb.WriteRune('\n')
		}
		cb.WriteString(wordwrap.String("   "+source.Snippet(snippetLimit), wrap))
		cb.WriteRune('\n')
	}
	return strings.TrimRight(cb.String(), "\n")
}

func renderResults(results []session.Source, cursor, width int) string {
	if len(results) == 0 {
		return helperStyle.Render("No results yet. Type a query and press enter.")
	}
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	var cb contentBuilder
	for idx, result := range results {
		title := fmt.Sprintf("%d. %s", idx+1, result.DisplayTitle())
		if idx == cursor {
			cb.WriteString(currentLineStyle.Render("> " + title))
		} else {
			cb.WriteString("  " + title)
		}
		cb.WriteRune('\n')
		if result.URL != "" {
			cb.WriteString(sourceStyle.Render("   " + result.URL))
			cb.WriteRune('\n')
		}
		cb.WriteString(helperStyle.Render(wordwrap.String("   "+result.Snippet(snippetLimit), wrap)))
		cb.WriteRune('\n')
	}
	return strings.TrimRight(cb.String(), "\n")
}
