package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/bnchat/internal/session"
)

func (m *model) View() string {
	parts := []string{m.heroView(), m.tabsView()}
	switch m.stage {
	case stageConfirm:
		parts = append(parts, m.confirmView())
	case stageOverlay:
		parts = append(parts, overlayBoxStyle.Width(m.layout.viewportWidth-4).Render(m.overlayText))
		parts = append(parts, helperStyle.Render("esc to close"))
	default:
		parts = append(parts, m.bodyView(), m.composerView())
	}
	parts = append(parts, m.statusView(), m.legendView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	title := heroTitleStyle.Render("bnchat")
	tagline := taglineStyle.Render(heroTagline)
	meters := []string{
		fmt.Sprintf("trust %d%%", m.state.TrustScore),
		fmt.Sprintf("searches %d/%d", m.state.SearchCount, m.state.SearchQuota),
	}
	if m.state.LearningMode {
		meters = append(meters, "teaching")
	}
	if m.config.Endpoint != "" {
		meters = append(meters, m.config.Endpoint)
	}
	return joinNonEmpty([]string{
		title + "  " + tagline,
		statusBarStyle.Render(strings.Join(meters, " · ")) + " " + trustMeter(m.state.TrustScore),
	})
}

// trustMeter draws ten cells, one per ten points of trust.
func trustMeter(score int) string {
	filled := score / 10
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return meterFilledStyle.Render(strings.Repeat("█", filled)) + meterEmptyStyle.Render(strings.Repeat("░", 10-filled))
}

func (m *model) tabsView() string {
	chat, search := inactiveTabStyle, inactiveTabStyle
	if m.tab == session.TabSearch {
		search = activeTabStyle
	} else {
		chat = activeTabStyle
	}
	return chat.Render("Chat") + " " + search.Render("Search")
}

func (m *model) bodyView() string {
	if m.tab == session.TabSearch {
		return renderResults(m.results, m.resultCursor, m.layout.viewportWidth)
	}
	m.refreshViewportIfDirty()
	return m.viewport.View()
}

func (m *model) composerView() string {
	if m.stage == stageTeach {
		return teachBoxStyle.Render(joinNonEmpty([]string{
			sectionHeaderStyle.Render("Teach a new answer"),
			m.questionInput.View(),
			m.answerInput.View(),
		}))
	}
	if m.tab == session.TabSearch {
		return composerBoxStyle.Render(m.searchInput.View())
	}
	return composerBoxStyle.Render(m.chatInput.View())
}

func (m *model) confirmView() string {
	if m.pending == nil {
		return ""
	}
	body := joinNonEmpty([]string{
		sectionHeaderStyle.Render("Confirm"),
		m.pending.prompt.Text(),
		"",
		keyStyle.Render("y") + keyDescStyle.Render(" yes  ") + keyStyle.Render("n") + keyDescStyle.Render(" no"),
	})
	return confirmBoxStyle.Width(m.layout.viewportWidth - 4).Render(body)
}

func (m *model) statusView() string {
	parts := []string{}
	if m.loadingDepth > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", m.spinner.View(), m.loadingLabel))
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	return strings.Join(parts, "  ")
}

func (m *model) legendView() string {
	items := make([]string, 0, len(keyBindings))
	for _, binding := range keyBindings {
		if !m.commandAvailable(binding.action) {
			continue
		}
		items = append(items, keyStyle.Render(binding.key)+" "+keyDescStyle.Render(binding.description))
	}
	return strings.Join(items, " ")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n")
}

func kindBadgeStyle(kind session.Kind) lipgloss.Style {
	switch kind {
	case session.KindLearned, session.KindLearnedSmart:
		return badgeStyle.Background(lipgloss.Color("#2a9d8f"))
	case session.KindWebSearch:
		return badgeStyle.Background(lipgloss.Color("#457b9d"))
	case session.KindAIGenerated:
		return badgeStyle.Background(lipgloss.Color("#7f5af0"))
	case session.KindError:
		return badgeStyle.Background(lipgloss.Color("#e63946"))
	default:
		return badgeStyle.Background(lipgloss.Color("#6c757d"))
	}
}

var (
	heroAccentColor = lipgloss.Color("#ff8c00")

	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#f4a261")).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	noticeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd166"))
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	meterFilledStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2a9d8f"))
	meterEmptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#56526e"))
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	currentLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	userLabelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a3be8c"))
	botLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	systemLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c77dff"))
	badgeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Padding(0, 1)
	activeTabStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(heroAccentColor).Padding(0, 2)
	inactiveTabStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Padding(0, 2)
	composerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	teachBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a9d8f")).Padding(0, 1)
	confirmBoxStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
	overlayBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
)
