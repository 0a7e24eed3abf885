package commands

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"

	"github.com/diogo/mira/internal/api"
	"github.com/diogo/mira/internal/config"
	"github.com/diogo/mira/internal/devserver"
	"github.com/diogo/mira/internal/history"
	"github.com/diogo/mira/internal/models"
)

// resetFlags restores every package level flag to its default
func resetFlags() {
	endpointFlag, uploadURLFlag, dataDirFlag, logLevelFlag = "", "", "", ""
	outputFlag, fileFlag, imageFlag = "", "", ""
	rawFlag, versionFlag = false, false
	timeoutFlag = defaultTimeout
	chatResumeFlag, chatNewFlag = "", false
	historyExportFormat, historyExportOutput = "markdown", ""
	historyImportOverwrite, historySearchContent = false, false
}

// setupEnv isolates config, data and clipboard for one test. It returns the
// data directory.
func setupEnv(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvEndpoint, "")
	t.Setenv(config.EnvUploadURL, "")
	t.Setenv(config.EnvDataDir, "")

	resetFlags()
	dataDir := filepath.Join(home, "data")
	dataDirFlag = dataDir
	logLevelFlag = "debug"

	origClient := newClient
	newClient = func(cfg config.Config, opts ...api.ClientOption) (*api.Client, error) {
		opts = append(opts, api.WithHTTPDoer(&fhttp.Client{Timeout: 5 * time.Second}))
		return origClient(cfg, opts...)
	}

	origClipboard := clipboardWrite
	clipboardWrite = func(string) error { return nil }

	t.Cleanup(func() {
		newClient = origClient
		clipboardWrite = origClipboard
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return dataDir
}

// startDevServer runs the local assistant service and points the flags at it
func startDevServer(t *testing.T) *devserver.Hub {
	t.Helper()

	hub := devserver.NewHub()
	srv := httptest.NewServer(devserver.New(hub).Handler())
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})

	endpointFlag = "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat"
	uploadURLFlag = srv.URL + "/image-analyze/image"
	return hub
}

// execute runs the root command with args and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// seedConversations stores one conversation per prompt, oldest first
func seedConversations(t *testing.T, dataDir string, prompts ...string) {
	t.Helper()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	clock := func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	store, err := history.OpenDefault(config.BackendKV, dataDir, history.WithClock(clock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	for _, prompt := range prompts {
		if _, err := store.Create(); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Append(models.RoleUser, prompt); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Append(models.RoleAssistant, "Answer to "+prompt); err != nil {
			t.Fatal(err)
		}
	}
}

// openSeeded opens the store written by the commands under test
func openSeeded(t *testing.T, dataDir string) *history.Store {
	t.Helper()
	store, err := history.OpenDefault(config.BackendKV, dataDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestVersionFlag(t *testing.T) {
	setupEnv(t)
	Version = "1.2.3"
	t.Cleanup(func() { Version = "dev" })

	stdout, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "mira 1.2.3") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestOneShot_Prompt(t *testing.T) {
	setupEnv(t)
	startDevServer(t)

	stdout, _, err := execute(t, "hello there")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	want := devserver.EchoReply("hello there") + "\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestOneShot_FileAndOutput(t *testing.T) {
	setupEnv(t)
	startDevServer(t)

	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	outPath := filepath.Join(dir, "reply.md")
	if err := os.WriteFile(promptPath, []byte("from a file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, "--file", promptPath, "--output", outPath)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout should be empty when writing to a file, got %q", stdout)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != devserver.EchoReply("from a file") {
		t.Errorf("saved reply = %q", data)
	}
}

func TestOneShot_Stdin(t *testing.T) {
	setupEnv(t)
	startDevServer(t)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader("piped prompt\n"))
	rootCmd.SetArgs([]string{})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "> piped prompt") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestOneShot_CopiesToClipboard(t *testing.T) {
	setupEnv(t)
	startDevServer(t)

	cfg := config.DefaultConfig()
	cfg.CopyToClipboard = true
	if err := config.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	var copied string
	clipboardWrite = func(text string) error {
		copied = text
		return nil
	}

	if _, _, err := execute(t, "copy me"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if copied != devserver.EchoReply("copy me") {
		t.Errorf("clipboard = %q", copied)
	}
}

func TestOneShot_EmptyPrompt(t *testing.T) {
	setupEnv(t)

	_, _, err := execute(t, "   ")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("err = %v, want empty prompt error", err)
	}
}

func TestOneShot_Unreachable(t *testing.T) {
	setupEnv(t)
	endpointFlag = "ws://127.0.0.1:1/chat"

	_, _, err := execute(t, "--timeout", "2s", "anyone there?")
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if !strings.Contains(err.Error(), "failed to connect") {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	setupEnv(t)
	startDevServer(t)

	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, []byte("\x89PNG fake"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, args := range [][]string{{"analyze", path}, {"--image", path}} {
		stdout, _, err := execute(t, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if !strings.Contains(stdout, "cat.png") || !strings.Contains(stdout, "image/png") {
			t.Errorf("%v: stdout = %q", args, stdout)
		}
	}
}

func TestAnalyze_Unsupported(t *testing.T) {
	setupEnv(t)
	startDevServer(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("text"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := execute(t, "analyze", path)
	if err == nil || !strings.Contains(err.Error(), "unsupported image type") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(formatErrorMessage(err, ""), "PNG") {
		t.Errorf("formatted error should hint at supported formats: %q", formatErrorMessage(err, ""))
	}
}

func TestFormatErrorMessage(t *testing.T) {
	if formatErrorMessage(nil, "ctx") != "" {
		t.Error("nil error should format as empty")
	}
	got := formatErrorMessage(os.ErrNotExist, "reading prompt")
	if !strings.Contains(got, "reading prompt: file does not exist") {
		t.Errorf("formatErrorMessage() = %q", got)
	}
}
