package params

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	if Config.BatchSize != 32 {
		t.Errorf("BatchSize = %d, want 32", Config.BatchSize)
	}
	if Config.LearningRate != 1e-4 {
		t.Errorf("LearningRate = %v, want 1e-4", Config.LearningRate)
	}
	if Config.GradClip != 0.1 {
		t.Errorf("GradClip = %v, want 0.1", Config.GradClip)
	}
	if Config.MaxEpochs != 1000 {
		t.Errorf("MaxEpochs = %d, want 1000", Config.MaxEpochs)
	}
	if Config.MaxTokens != 10 {
		t.Errorf("MaxTokens = %d, want 10", Config.MaxTokens)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	saved := Config
	defer func() { Config = saved }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "batch_size: 8\nhidden_size: 64\ndata_dir: /tmp/subs\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if Config.BatchSize != 8 {
		t.Errorf("BatchSize = %d, want 8", Config.BatchSize)
	}
	if Config.HiddenSize != 64 {
		t.Errorf("HiddenSize = %d, want 64", Config.HiddenSize)
	}
	if Config.DataDir != "/tmp/subs" {
		t.Errorf("DataDir = %q, want /tmp/subs", Config.DataDir)
	}
	// keys absent from the file keep their defaults
	if Config.LearningRate != saved.LearningRate {
		t.Errorf("LearningRate = %v, want default %v", Config.LearningRate, saved.LearningRate)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	saved := Config
	defer func() { Config = saved }()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("batch_size: [nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
