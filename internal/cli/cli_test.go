package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/config"
	"github.com/kuse-dev/cowork/internal/log"
	"github.com/kuse-dev/cowork/internal/testutil"
)

// executeCommand runs the root command with args against dir and returns
// stdout and the command error.
func executeCommand(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	// Package-level flag variables survive between executions.
	configDir, verbose = "", false
	runProject, runMaxTurns, runScript, runChat = "", 0, "", ""
	statsTasks = 5
	configForce = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func writeScript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvAgentCommand, "")
	dir := filepath.Join(t.TempDir(), ".cowork")

	out, err := executeCommand(t, dir, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "config.yaml") {
		t.Errorf("config init output = %q", out)
	}

	if _, err := executeCommand(t, dir, "config", "init"); err == nil {
		t.Error("second config init should fail without --force")
	}
	if _, err := executeCommand(t, dir, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	out, err = executeCommand(t, dir, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"command: cowork-agent", "max_turns: 100", "not configured"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestRunScriptRecordsTask(t *testing.T) {
	dir := testutil.TempConfigDir(t, nil)
	script := writeScript(t,
		`{"type":"tool_start","tool":"list_dir","input":{"path":"."}}`,
		`{"type":"tool_end","tool":"list_dir","result":"a.txt,b.txt","success":true}`,
		`{"type":"text","content":"Found 2 files"}`,
		`{"type":"turn_complete","turn":1}`,
		`{"type":"done","total_turns":1}`,
	)

	out, err := executeCommand(t, dir, "run", "list files", "--script", script)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"> list files", "list_dir [Done]  path: .", "Found 2 files", "Completed in 1 turn"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q:\n%s", want, out)
		}
	}

	out, err = executeCommand(t, dir, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"Total Tasks:     1", "Completed:       1", "Success Rate: 100%", "list files"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	logger, err := log.NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	entries, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(log.Filter(entries, log.EventSessionDone)) != 1 {
		t.Errorf("expected one session_done log entry, got %d entries", len(entries))
	}
}

func TestRunScriptErrorExitsNonZero(t *testing.T) {
	dir := testutil.TempConfigDir(t, nil)
	script := writeScript(t,
		`{"type":"text","content":"trying"}`,
		`{"type":"error","message":"Rate limited"}`,
	)

	out, err := executeCommand(t, dir, "run", "go", "--script", script)
	if err == nil {
		t.Fatal("run should fail when the session ends in an error")
	}
	if !strings.Contains(err.Error(), "Rate limited") {
		t.Errorf("error = %v, want it to mention the session error", err)
	}
	if !strings.Contains(out, "Error: Rate limited") {
		t.Errorf("output missing error line:\n%s", out)
	}
}

func TestRunRequiresConfiguration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvAPIKey, "")

	_, err := executeCommand(t, dir, "run", "hello")
	if err == nil || !strings.Contains(err.Error(), "config init") {
		t.Errorf("error = %v, want configuration hint", err)
	}
}

func TestRunHostUnavailable(t *testing.T) {
	dir := testutil.TempConfigDir(t, nil)
	t.Setenv(config.EnvAgentCommand, filepath.Join(t.TempDir(), "no-such-agent"))

	_, err := executeCommand(t, dir, "run", "hello")
	if err == nil || !strings.Contains(err.Error(), "desktop host") {
		t.Errorf("error = %v, want host-unavailable message", err)
	}
}

func TestRunSavesConversation(t *testing.T) {
	dir := testutil.TempConfigDir(t, nil)
	script := writeScript(t,
		`{"type":"text","content":"Hello there"}`,
		`{"type":"done","total_turns":1}`,
	)

	if _, err := executeCommand(t, dir, "run", "hi", "--script", script, "--chat", "new"); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out, err := executeCommand(t, dir, "chats", "show")
	if err != nil {
		t.Fatalf("chats show failed: %v", err)
	}
	for _, want := range []string{"New Chat", "You", "hi", "Claude", "Hello there"} {
		if !strings.Contains(out, want) {
			t.Errorf("chats show missing %q:\n%s", want, out)
		}
	}
}

func TestChatsLifecycle(t *testing.T) {
	dir := testutil.TempConfigDir(t, nil)

	out, err := executeCommand(t, dir, "chats", "list")
	if err != nil {
		t.Fatalf("chats list failed: %v", err)
	}
	if !strings.Contains(out, "No conversations yet") {
		t.Errorf("empty list output = %q", out)
	}

	if _, err := executeCommand(t, dir, "chats", "new"); err != nil {
		t.Fatalf("chats new failed: %v", err)
	}
	out, err = executeCommand(t, dir, "chats", "list")
	if err != nil {
		t.Fatalf("chats list failed: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "*" {
		t.Fatalf("list output = %q", out)
	}
	id := fields[1]

	if _, err := executeCommand(t, dir, "chats", "rm", id); err != nil {
		t.Fatalf("chats rm failed: %v", err)
	}
	if _, err := executeCommand(t, dir, "chats", "rm", id); err == nil {
		t.Error("removing a missing conversation should fail")
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("fix\n  the   tests", 60); got != "fix the tests" {
		t.Errorf("oneLine = %q", got)
	}
	if got := oneLine(strings.Repeat("a", 70), 10); got != "aaaaaaa..." {
		t.Errorf("oneLine truncation = %q", got)
	}
}

func TestRunScriptWithoutResultFailsTask(t *testing.T) {
	dir := testutil.TempConfigDir(t, nil)
	script := writeScript(t, `{"type":"text","content":"halfway"}`)

	out, err := executeCommand(t, dir, "run", "unfinished", "--script", script)
	if !errors.Is(err, agent.ErrStreamClosed) {
		t.Fatalf("run error = %v, want ErrStreamClosed", err)
	}
	if !strings.Contains(out, "Agent stream ended without a result") {
		t.Errorf("output missing stream-ended line:\n%s", out)
	}

	out, err = executeCommand(t, dir, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"Total Tasks:     1", "Completed:       0", "failed", "unfinished"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}
