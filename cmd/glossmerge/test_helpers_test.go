package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"glossmerge/internal/config"
	"glossmerge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	testsupport.WriteWLASL(t, cfg, `[
      {"gloss": "book", "instances": [
        {"video_id": "05723", "url": "https://youtu.be/shared", "fps": 25, "frame_start": 1, "frame_end": -1, "split": "train"},
        {"video_id": "05724", "url": "https://youtu.be/solo", "fps": 25, "frame_start": 51, "frame_end": 125, "split": "val"}
      ]}
    ]`)
	testsupport.WriteMSASL(t, cfg, "train", `[
      {"clean_text": "book", "url": "https://youtu.be/shared", "start_time": 0, "end_time": 0, "fps": 30, "label": 1},
      {"clean_text": "cat", "url": "https://youtu.be/cat", "start_time": 1.0, "end_time": 3.5, "fps": 30, "label": 2}
    ]`)

	configPath := filepath.Join(homeDir, ".config", "glossmerge", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
