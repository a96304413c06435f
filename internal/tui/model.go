package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/bnchat/internal/session"
)

const busyMessage = "Another change is still in progress. Wait for it to finish."

// Config wires runtime options into the TUI program.
type Config struct {
	Session Operations
	// Context bounds every job; cancel it after the program exits.
	Context  context.Context
	Logger   *zap.Logger
	Endpoint string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	chatInput := textinput.New()
	chatInput.Placeholder = chatPlaceholder
	chatInput.CharLimit = 1000
	chatInput.Width = 70
	chatInput.Focus()

	searchInput := textinput.New()
	searchInput.Placeholder = searchPlaceholder
	searchInput.CharLimit = 200
	searchInput.Width = 70

	questionInput := textinput.New()
	questionInput.Placeholder = questionPlaceholder
	questionInput.CharLimit = 500
	questionInput.Width = 70

	answerInput := textinput.New()
	answerInput.Placeholder = answerPlaceholder
	answerInput.CharLimit = 1000
	answerInput.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &model{
		config:        config,
		ops:           config.Session,
		logger:        logger.With(zap.String("component", "tui")),
		jobs:          newJobBus(config.Context, logger),
		layout:        newPageLayout(),
		stage:         stageCompose,
		tab:           session.TabChat,
		chatInput:     chatInput,
		searchInput:   searchInput,
		questionInput: questionInput,
		answerInput:   answerInput,
		spinner:       spin,
		viewport:      vp,
		viewportDirty: true,
		followTail:    true,
	}
	if m.ops != nil {
		m.messages = m.ops.Transcript()
		m.state = m.ops.State()
		if m.state.ActiveTab != "" {
			m.tab = m.state.ActiveTab
		}
	}
	m.focusComposer()
	return m
}

type model struct {
	config Config
	ops    Operations
	logger *zap.Logger
	jobs   *jobBus
	layout pageLayout

	stage       stage
	returnStage stage
	tab         session.Tab

	chatInput     textinput.Model
	searchInput   textinput.Model
	questionInput textinput.Model
	answerInput   textinput.Model
	teachField    teachField
	spinner       spinner.Model
	viewport      viewport.Model

	messages      []session.Message
	results       []session.Source
	resultCursor  int
	lastQuery     string
	state         session.State
	loadingDepth  int
	loadingLabel  string
	notice        string
	errorMessage  string
	pending       *confirmMsg
	overlay       overlayKind
	overlayText   string
	viewportDirty bool
	followTail    bool
}

// Init blinks the cursor and loads the live counters once.
func (m *model) Init() tea.Cmd {
	if m.ops == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.jobs.Start(jobKindSync, syncJob(m.ops)))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loadingDepth > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		for _, input := range []*textinput.Model{&m.chatInput, &m.searchInput, &m.questionInput, &m.answerInput} {
			input.Width = m.layout.inputWidth
		}
		m.markViewportDirty()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.followTail = m.viewport.AtBottom()
		return m, cmd
	case jobSignalMsg:
		return m, nil
	case jobResultEnvelope:
		return m.Update(msg.Payload)

	case messageMsg:
		m.messages = append(m.messages, msg.message)
		m.followTail = true
		m.markViewportDirty()
		return m, nil
	case resultsMsg:
		m.results = msg.results
		m.resultCursor = 0
		return m, nil
	case statsMsg:
		m.openOverlay(overlayStats, msg.summary)
		return m, nil
	case stateMsg:
		m.state = msg.state
		return m, nil
	case noticeMsg:
		m.notice = msg.text
		m.errorMessage = ""
		return m, nil
	case loadingMsg:
		return m, m.applyLoading(msg)
	case confirmMsg:
		if m.pending != nil {
			msg.reply <- false
			return m, nil
		}
		m.pending = &msg
		m.returnStage = m.stage
		m.stage = stageConfirm
		return m, nil
	case resetMsg:
		m.applyReset(msg.state)
		return m, nil

	case sendResultMsg:
		if session.IsValidation(msg.err) || errors.Is(msg.err, session.ErrOperationInFlight) {
			m.reportError(msg.err)
		}
		return m, nil
	case directSearchResultMsg:
		if msg.err == nil {
			m.lastQuery = msg.query
		}
		m.reportError(msg.err)
		return m, nil
	case teachResultMsg:
		if msg.outcome.ClearsInput() {
			m.questionInput.SetValue("")
			m.answerInput.SetValue("")
			if m.stage == stageTeach {
				m.stage = stageCompose
				m.focusComposer()
			}
		}
		m.reportError(msg.err)
		return m, nil
	case autoLearnResultMsg:
		m.reportError(msg.err)
		return m, nil
	case undoResultMsg:
		if msg.result.Declined {
			m.notice = "Undo cancelled."
		}
		m.reportError(msg.err)
		return m, nil
	case resetResultMsg:
		if errors.Is(msg.err, session.ErrDeclined) {
			m.notice = "Reset cancelled."
			return m, nil
		}
		m.reportError(msg.err)
		return m, nil
	case statsResultMsg:
		m.reportError(msg.err)
		return m, nil
	case syncResultMsg:
		if msg.err != nil {
			m.logger.Debug("initial sync failed", zap.Error(msg.err))
		}
		return m, nil
	}
	return m, nil
}

func (m *model) applyLoading(msg loadingMsg) tea.Cmd {
	if msg.active {
		m.loadingDepth++
		m.loadingLabel = msg.label
		if m.loadingDepth == 1 {
			return m.spinner.Tick
		}
		return nil
	}
	if m.loadingDepth > 0 {
		m.loadingDepth--
	}
	if m.loadingDepth == 0 {
		m.loadingLabel = ""
	}
	return nil
}

func (m *model) applyReset(state session.State) {
	m.messages = nil
	m.results = nil
	m.resultCursor = 0
	m.lastQuery = ""
	m.state = state
	m.tab = state.ActiveTab
	m.chatInput.SetValue("")
	m.searchInput.SetValue("")
	m.questionInput.SetValue("")
	m.answerInput.SetValue("")
	m.overlay = overlayNone
	m.overlayText = ""
	m.errorMessage = ""
	m.notice = "Started a new session."
	if m.stage != stageConfirm {
		m.stage = stageCompose
	} else {
		m.returnStage = stageCompose
	}
	m.focusComposer()
	m.viewport.SetYOffset(0)
	m.followTail = true
	m.markViewportDirty()
}

func (m *model) reportError(err error) {
	var rejection *session.DomainRejection
	switch {
	case err == nil, errors.Is(err, session.ErrSessionEnded):
		return
	case errors.Is(err, session.ErrOperationInFlight):
		m.errorMessage = busyMessage
	case session.IsValidation(err):
		m.errorMessage = capitalize(err.Error()) + "."
	case errors.As(err, &rejection):
		// the service message was already shown as a notice
	default:
		m.errorMessage = err.Error()
	}
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		return m, m.quit()
	}
	switch m.stage {
	case stageConfirm:
		return m.handleConfirmKey(key)
	case stageOverlay:
		return m.handleOverlayKey(key)
	}

	switch key.String() {
	case "ctrl+t":
		return m, m.toggleTeachMode()
	case "ctrl+u":
		return m, m.startJob(jobKindUndo, undoJob)
	case "ctrl+r":
		return m, m.startJob(jobKindReset, resetJob)
	case "ctrl+s":
		return m, m.startJob(jobKindStats, statsJob)
	case "ctrl+o":
		m.openSources()
		return m, nil
	case "f1":
		m.openOverlay(overlayHelp, m.helpText())
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		m.followTail = m.viewport.AtBottom()
		return m, cmd
	}

	if m.stage == stageTeach {
		return m.handleTeachKey(key)
	}
	if key.String() == "tab" {
		m.switchTab()
		return m, nil
	}
	if m.tab == session.TabSearch {
		return m.handleSearchKey(key)
	}
	return m.handleChatKey(key)
}

func (m *model) handleChatKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "enter":
		text := m.chatInput.Value()
		m.chatInput.SetValue("")
		m.errorMessage = ""
		return m, m.startJob(jobKindSend, func(ops Operations) jobRunner { return sendJob(ops, text) })
	case "ctrl+w":
		query := m.chatInput.Value()
		m.chatInput.SetValue("")
		m.errorMessage = ""
		return m, m.startJob(jobKindWebSearch, func(ops Operations) jobRunner { return webSearchJob(ops, query) })
	case "esc":
		m.chatInput.SetValue("")
		m.notice = ""
		m.errorMessage = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(key)
	return m, cmd
}

func (m *model) handleSearchKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "enter", "ctrl+w":
		query := m.searchInput.Value()
		m.errorMessage = ""
		return m, m.startJob(jobKindDirectSearch, func(ops Operations) jobRunner { return directSearchJob(ops, query) })
	case "up":
		if m.resultCursor > 0 {
			m.resultCursor--
		}
		return m, nil
	case "down":
		if m.resultCursor < len(m.results)-1 {
			m.resultCursor++
		}
		return m, nil
	case "ctrl+l":
		return m, m.teachSelectedResult()
	case "esc":
		m.searchInput.SetValue("")
		m.notice = ""
		m.errorMessage = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(key)
	return m, cmd
}

func (m *model) handleTeachKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		return m, m.toggleTeachMode()
	case "tab", "shift+tab", "up", "down":
		m.switchTeachField()
		return m, nil
	case "enter":
		if m.teachField == teachFieldQuestion {
			m.switchTeachField()
			return m, nil
		}
		question, answer := m.questionInput.Value(), m.answerInput.Value()
		m.errorMessage = ""
		return m, m.startJob(jobKindTeach, func(ops Operations) jobRunner { return teachJob(ops, question, answer) })
	}
	var cmd tea.Cmd
	if m.teachField == teachFieldQuestion {
		m.questionInput, cmd = m.questionInput.Update(key)
	} else {
		m.answerInput, cmd = m.answerInput.Update(key)
	}
	return m, cmd
}

func (m *model) handleConfirmKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(key.String()) {
	case "y":
		m.answerPending(true)
	case "n", "esc":
		m.answerPending(false)
	}
	return m, nil
}

func (m *model) handleOverlayKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "enter", "q":
		m.overlay = overlayNone
		m.overlayText = ""
		m.stage = m.returnStage
	}
	return m, nil
}

func (m *model) answerPending(answer bool) {
	if m.pending == nil {
		return
	}
	m.pending.reply <- answer
	m.pending = nil
	m.stage = m.returnStage
}

func (m *model) quit() tea.Cmd {
	m.answerPending(false)
	return tea.Quit
}

func (m *model) startJob(kind jobKind, build func(Operations) jobRunner) tea.Cmd {
	if m.ops == nil {
		m.errorMessage = "No chat service configured."
		return nil
	}
	m.logger.Debug("job requested", zap.String("kind", string(kind)))
	return m.jobs.Start(kind, build(m.ops))
}

func (m *model) toggleTeachMode() tea.Cmd {
	on := !m.state.LearningMode
	if m.ops != nil {
		on = m.ops.ToggleLearningMode()
	}
	m.state.LearningMode = on
	if !on {
		m.stage = stageCompose
		m.focusComposer()
		return nil
	}
	m.stage = stageTeach
	if question := strings.TrimSpace(m.chatInput.Value()); question != "" && m.questionInput.Value() == "" {
		m.questionInput.SetValue(question)
		m.chatInput.SetValue("")
	}
	m.teachField = teachFieldQuestion
	m.focusTeachField()
	return textinput.Blink
}

func (m *model) switchTeachField() {
	if m.teachField == teachFieldQuestion {
		m.teachField = teachFieldAnswer
	} else {
		m.teachField = teachFieldQuestion
	}
	m.focusTeachField()
}

func (m *model) focusTeachField() {
	m.chatInput.Blur()
	m.searchInput.Blur()
	if m.teachField == teachFieldQuestion {
		m.answerInput.Blur()
		m.questionInput.Focus()
	} else {
		m.questionInput.Blur()
		m.answerInput.Focus()
	}
}

func (m *model) switchTab() {
	if m.tab == session.TabChat {
		m.tab = session.TabSearch
	} else {
		m.tab = session.TabChat
	}
	if m.ops != nil {
		m.ops.SwitchTab(m.tab)
	}
	m.state.ActiveTab = m.tab
	m.focusComposer()
}

func (m *model) focusComposer() {
	m.questionInput.Blur()
	m.answerInput.Blur()
	if m.tab == session.TabSearch {
		m.chatInput.Blur()
		m.searchInput.Focus()
		return
	}
	m.searchInput.Blur()
	m.chatInput.Focus()
}

func (m *model) teachSelectedResult() tea.Cmd {
	if m.resultCursor < 0 || m.resultCursor >= len(m.results) {
		m.errorMessage = "Search first, then pick a result to teach."
		return nil
	}
	question := m.lastQuery
	if question == "" {
		question = m.searchInput.Value()
	}
	source := m.results[m.resultCursor]
	return m.startJob(jobKindAutoLearn, func(ops Operations) jobRunner { return autoLearnJob(ops, question, source) })
}

func (m *model) latestSources() []session.Source {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Sender == session.SenderBot && len(m.messages[i].Sources) > 0 {
			return m.messages[i].Sources
		}
	}
	return nil
}

func (m *model) openSources() {
	sources := m.latestSources()
	if len(sources) == 0 {
		m.notice = "The latest answer has no sources."
		return
	}
	m.openOverlay(overlaySources, renderSourceList(sources, m.layout.viewportWidth))
}

func (m *model) openOverlay(kind overlayKind, text string) {
	m.overlay = kind
	m.overlayText = text
	if m.stage == stageConfirm {
		m.returnStage = stageOverlay
		return
	}
	if m.stage != stageOverlay {
		m.returnStage = m.stage
	}
	m.stage = stageOverlay
}

func (m *model) commandAvailable(a action) bool {
	switch a {
	case actionSend, actionWebSearch:
		return m.stage == stageCompose
	case actionTeachResult:
		return m.tab == session.TabSearch && len(m.results) > 0
	case actionSources:
		return len(m.latestSources()) > 0
	default:
		return true
	}
}

func (m *model) helpText() string {
	var b strings.Builder
	b.WriteString("Keys\n\n")
	for _, binding := range keyBindings {
		fmt.Fprintf(&b, "  %-8s %s\n", binding.key, binding.description)
	}
	b.WriteString("\nIn teach mode: enter moves to the answer, then submits; esc leaves.\n")
	b.WriteString("In the search tab: enter searches, up/down pick a result, ctrl+l teaches it.")
	return b.String()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func capitalize(text string) string {
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
