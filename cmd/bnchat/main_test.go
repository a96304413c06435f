package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/bnchat/internal/api"
	"github.com/csheth/bnchat/internal/api/apitest"
)

const (
	capitalQuestion = "বাংলাদেশের রাজধানী"
	capitalAnswer   = "ঢাকা"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))

	var out, errOut bytes.Buffer
	code := execute(append(args, "--log-file="), streams{
		in:  strings.NewReader(stdin),
		out: &out,
		err: &errOut,
	})
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func newService(t *testing.T, opts ...apitest.Option) *apitest.Server {
	t.Helper()
	opts = append([]apitest.Option{apitest.WithKnowledge(map[string]string{capitalQuestion: capitalAnswer})}, opts...)
	srv := apitest.New(opts...)
	t.Cleanup(srv.Close)
	return srv
}

func TestAskPrintsReplyAndMeters(t *testing.T) {
	srv := newService(t)

	res := runCLI(t, "", "ask", "--endpoint", srv.URL, capitalQuestion)

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[Learned]")
	assert.Contains(t, res.stdout, capitalAnswer)
	assert.Contains(t, res.stdout, "trust 50% · searches 0/50")
	assert.Contains(t, srv.Requests(), "POST /api/chat")
}

func TestAskWebUsesSearchResults(t *testing.T) {
	srv := newService(t, apitest.WithSearchResults(api.SearchResult{
		URL:     "https://example.com/padma",
		Title:   "Padma",
		Content: "পদ্মা বাংলাদেশের প্রধান নদী",
	}))

	res := runCLI(t, "", "ask", "--web", "--endpoint", srv.URL, "পদ্মা")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "[Web]")
	assert.Contains(t, res.stdout, "https://example.com/padma")
	assert.Contains(t, res.stdout, "searches 1/50")
	assert.Equal(t, 1, srv.SearchCount())
}

func TestSearchListsResults(t *testing.T) {
	srv := newService(t, apitest.WithSearchResults(
		api.SearchResult{URL: "https://example.com/a", Title: "First", Content: "one"},
		api.SearchResult{URL: "https://example.com/b", Title: "Second", Content: "two"},
	))

	res := runCLI(t, "", "search", "--endpoint", srv.URL, "rivers")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "1. First")
	assert.Contains(t, res.stdout, "2. Second")
	assert.Contains(t, res.stdout, "https://example.com/b")
}

func TestTeachConflictDeclinedKeepsAnswer(t *testing.T) {
	srv := newService(t)

	res := runCLI(t, "n\n", "teach", "--endpoint", srv.URL, capitalQuestion, "চট্টগ্রাম")

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Keep your answer?")
	assert.Contains(t, res.stdout, "Kept the existing answer.")
	answer, _ := srv.Answer(capitalQuestion)
	assert.Equal(t, capitalAnswer, answer)
}

func TestTeachConflictWithYesOverrides(t *testing.T) {
	srv := newService(t)

	res := runCLI(t, "", "teach", "--yes", "--endpoint", srv.URL, capitalQuestion, "চট্টগ্রাম")

	require.Equal(t, 0, res.code, res.stderr)
	answer, _ := srv.Answer(capitalQuestion)
	assert.Equal(t, "চট্টগ্রাম", answer)
}

func TestUndoRejectionExitsNonZero(t *testing.T) {
	srv := newService(t)

	res := runCLI(t, "", "undo", "--yes", "--endpoint", srv.URL)

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "Nothing to undo")
	assert.Contains(t, res.stderr, "Error:")
}

func TestStatsPrintsSummary(t *testing.T) {
	srv := newService(t)

	res := runCLI(t, "", "stats", "--endpoint", srv.URL)

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Bot statistics")
	assert.Contains(t, res.stdout, "Total learned: 1")
	assert.Contains(t, res.stdout, "Searches left: 50")
}

func TestHistoryListsArchivedSessions(t *testing.T) {
	srv := newService(t)
	archiveFile := filepath.Join(t.TempDir(), "sessions.json")

	res := runCLI(t, "", "ask", "--endpoint", srv.URL, "--archive-file", archiveFile, capitalQuestion)
	require.Equal(t, 0, res.code, res.stderr)

	res = runCLI(t, "", "history", "--archive-file", archiveFile)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "closed")
	assert.Contains(t, res.stdout, "3 messages")
}

func TestHistoryWithoutArchiveFileFails(t *testing.T) {
	res := runCLI(t, "", "history")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--archive-file")
}

func TestInvalidEndpointIsRejected(t *testing.T) {
	res := runCLI(t, "", "ask", "--endpoint", "localhost:5000", "hello")

	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "endpoint")
}

func TestEndpointFromEnvironment(t *testing.T) {
	srv := newService(t)
	t.Setenv("BNCHAT_ENDPOINT", srv.URL)

	res := runCLI(t, "", "ask", capitalQuestion)

	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, capitalAnswer)
}
