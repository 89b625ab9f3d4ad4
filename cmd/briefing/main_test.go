package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"briefing/internal/config"
	"briefing/internal/store"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n",
		filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCommandErr(args...)
	if err != nil {
		t.Fatalf("command %v: %v\n%s", args, err, out)
	}
	return out
}

func runCommandErr(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func openTestStore(t *testing.T, configPath string) *store.Store {
	t.Helper()
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out := runCommand(t, "config", "init", "--path", target)
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[transcript]") {
		t.Fatalf("sample config incomplete:\n%s", data)
	}

	if _, err := runCommandErr("config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
}

func TestChannelsAddAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	out := runCommand(t, "--config", configPath, "channels", "add", "UC1", "--title", "Example Channel")
	if !strings.Contains(out, "Following channel UC1") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out = runCommand(t, "--config", configPath, "channels", "list")
	if !strings.Contains(out, "UC1") || !strings.Contains(out, "Example Channel") {
		t.Fatalf("channel missing from list:\n%s", out)
	}
	if !strings.Contains(out, "feeds/videos.xml?channel_id=UC1") {
		t.Fatalf("feed url missing from list:\n%s", out)
	}
}

func TestSubscribersRoundTrip(t *testing.T) {
	configPath := writeTestConfig(t)
	runCommand(t, "--config", configPath, "channels", "add", "UC1")
	runCommand(t, "--config", configPath, "subscribers", "add", "alice@example.com", "--name", "Alice")

	out := runCommand(t, "--config", configPath, "subscribers", "subscribe", "alice@example.com", "UC1")
	if !strings.Contains(out, "alice@example.com now follows UC1") {
		t.Fatalf("unexpected subscribe output: %s", out)
	}

	if _, err := runCommandErr("--config", configPath, "subscribers", "subscribe", "bob@example.com", "UC1"); err == nil {
		t.Fatal("unknown subscriber must fail")
	}
}

func TestRetryResetsFailedTranscripts(t *testing.T) {
	configPath := writeTestConfig(t)
	st := openTestStore(t, configPath)

	ctx := context.Background()
	channel, err := st.EnsureChannel(ctx, "UC1", "Example", "")
	if err != nil {
		t.Fatalf("ensure channel: %v", err)
	}
	video := &store.Video{ChannelID: channel.ID, ExternalID: "vid1", Title: "T", URL: "https://example.com/v"}
	if err := st.InsertVideo(ctx, video); err != nil {
		t.Fatalf("insert video: %v", err)
	}
	failed := store.Track{Status: store.StatusFailed, RetryCount: 6, LastError: "captions disabled"}
	if err := st.SetTranscriptTrack(ctx, video.ID, failed); err != nil {
		t.Fatalf("set track: %v", err)
	}

	out := runCommand(t, "--config", configPath, "retry", "transcripts")
	if !strings.Contains(out, "Reset 1 failed transcripts") {
		t.Fatalf("unexpected retry output: %s", out)
	}

	reloaded, err := st.VideoByID(ctx, video.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload video: %v", err)
	}
	if reloaded.Transcript.Status != store.StatusPending || reloaded.Transcript.RetryCount != 0 {
		t.Fatalf("track not reset: %+v", reloaded.Transcript)
	}

	eligible, err := st.EligibleTranscripts(ctx, time.Now().UTC(), 10)
	if err != nil || len(eligible) != 1 {
		t.Fatalf("reset video must be eligible again: %v %v", eligible, err)
	}
}

func TestStatusOnEmptyStore(t *testing.T) {
	configPath := writeTestConfig(t)
	out := runCommand(t, "--config", configPath, "status")
	for _, stage := range []string{"transcript", "metadata", "summary", "notify"} {
		if !strings.Contains(out, stage) {
			t.Fatalf("status missing stage %s:\n%s", stage, out)
		}
	}
}
