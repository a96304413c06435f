package tui

import (
	"strings"
	"testing"

	"github.com/csheth/bnchat/internal/session"
)

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name           string
		width          int
		height         int
		viewportWidth  int
		viewportHeight int
		inputWidth     int
	}{
		{name: "narrow", width: 80, height: 24, viewportWidth: 76, viewportHeight: 15, inputWidth: 70},
		{name: "wide", width: 200, height: 40, viewportWidth: 196, viewportHeight: 31, inputWidth: 190},
		{name: "tiny", width: 20, height: 8, viewportWidth: 40, viewportHeight: 5, inputWidth: 34},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.viewportWidth != tc.viewportWidth {
				t.Fatalf("viewport width mismatch: got %d want %d", layout.viewportWidth, tc.viewportWidth)
			}
			if layout.viewportHeight != tc.viewportHeight {
				t.Fatalf("viewport height mismatch: got %d want %d", layout.viewportHeight, tc.viewportHeight)
			}
			if layout.inputWidth != tc.inputWidth {
				t.Fatalf("input width mismatch: got %d want %d", layout.inputWidth, tc.inputWidth)
			}
		})
	}
}

func TestRenderTranscriptCapsInlineSources(t *testing.T) {
	sources := []session.Source{
		{URL: "https://1.example"}, {URL: "https://2.example"}, {URL: "https://3.example"},
		{URL: "https://4.example"}, {URL: "https://5.example"},
	}
	out := renderTranscript([]session.Message{{Sender: session.SenderBot, Kind: session.KindWebSearch, Text: "x", Sources: sources}}, 80)
	if !strings.Contains(out, "https://3.example") || strings.Contains(out, "https://4.example") {
		t.Fatalf("expected three inline sources:\n%s", out)
	}
	if !strings.Contains(out, "+2 more") {
		t.Fatalf("missing overflow hint:\n%s", out)
	}
}

func TestRenderTranscriptEmptyWebSearch(t *testing.T) {
	out := renderTranscript([]session.Message{{Sender: session.SenderBot, Kind: session.KindWebSearch}}, 80)
	if !strings.Contains(out, "No results found.") {
		t.Fatalf("empty web search should say so:\n%s", out)
	}
}

func TestRenderTranscriptWraps(t *testing.T) {
	long := strings.Repeat("শব্দ ", 40)
	out := renderTranscript([]session.Message{{Sender: session.SenderUser, Text: long}}, 40)
	if lines := strings.Count(out, "\n"); lines < 3 {
		t.Fatalf("expected wrapped output, got %d lines:\n%s", lines, out)
	}
}

func TestTrustMeter(t *testing.T) {
	if got := trustMeter(50); strings.Count(got, "█") != 5 || strings.Count(got, "░") != 5 {
		t.Fatalf("unexpected meter %q", got)
	}
	if got := trustMeter(150); strings.Count(got, "█") != 10 {
		t.Fatalf("meter should cap at ten cells: %q", got)
	}
}
