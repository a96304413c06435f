package tui

type stage int

const (
	stageCompose stage = iota
	stageTeach
	stageConfirm
	stageOverlay
)

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayStats
	overlaySources
	overlayHelp
)

type teachField int

const (
	teachFieldQuestion teachField = iota
	teachFieldAnswer
)

const heroTagline = "Chat in Bengali. Teach it what it does not know."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	snippetLimit              = 160
)

const (
	chatPlaceholder     = "Type a message…"
	searchPlaceholder   = "Search the web…"
	questionPlaceholder = "Question"
	answerPlaceholder   = "Answer"
)

type action int

const (
	actionSend action = iota
	actionWebSearch
	actionTeachMode
	actionTeachResult
	actionUndo
	actionReset
	actionStats
	actionSources
	actionSwitchTab
	actionHelp
	actionQuit
)

type keyBinding struct {
	action      action
	key         string
	description string
}

var keyBindings = []keyBinding{
	{actionSend, "enter", "send"},
	{actionWebSearch, "ctrl+w", "web search"},
	{actionTeachMode, "ctrl+t", "teach"},
	{actionTeachResult, "ctrl+l", "teach result"},
	{actionUndo, "ctrl+u", "undo"},
	{actionReset, "ctrl+r", "reset"},
	{actionStats, "ctrl+s", "stats"},
	{actionSources, "ctrl+o", "sources"},
	{actionSwitchTab, "tab", "chat/search"},
	{actionHelp, "f1", "help"},
	{actionQuit, "ctrl+c", "quit"},
}
