package main

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/csheth/bnchat/internal/tuitest"
)

func TestInteractiveChatRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and drives the binary in a pseudo terminal")
	}
	if runtime.GOOS == "windows" {
		t.Skip("pseudo terminals are unavailable on windows")
	}

	srv := newService(t)
	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	home := t.TempDir()

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--alt-screen=false", "--log-file=", "--endpoint", srv.URL},
		Dir:     cmdDir,
		Env: []string{
			"XDG_CONFIG_HOME=" + filepath.Join(home, "config"),
			"XDG_CACHE_HOME=" + filepath.Join(home, "cache"),
		},
		Width:  100,
		Height: 32,
		Steps: []tuitest.Step{
			tuitest.WaitFor("Welcome to bnchat"),
			tuitest.Type(capitalQuestion),
			tuitest.Press(tuitest.KeyEnter),
			tuitest.WaitFor(capitalAnswer),
			tuitest.Press(tuitest.KeyCtrlS),
			tuitest.WaitFor("Bot statistics"),
			tuitest.Press(tuitest.KeyEsc),
			{Delay: 200 * time.Millisecond, Input: tuitest.KeyCtrlC},
		},
		Timeout:        15 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	if !rec.Contains(capitalAnswer) {
		t.Fatalf("answer never rendered")
	}
	frame, ok := rec.LastFrameContaining("trust")
	if !ok {
		t.Fatalf("status meters never rendered")
	}
	if len(frame.Lines()) == 0 {
		t.Fatalf("empty frame")
	}
	requests := srv.Requests()
	for _, want := range []string{"POST /api/chat", "GET /api/knowledge/stats", "GET /api/search_stats"} {
		if !slices.Contains(requests, want) {
			t.Fatalf("service never saw %q; got %v", want, requests)
		}
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "bnchat-integration")
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
