package params

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type TrainingConfig struct {
	// Model
	EmbeddingDim int `yaml:"embedding_dim"` // word vector width
	HiddenSize   int `yaml:"hidden_size"`   // LSTM state width

	// Optimization
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxEpochs    int     `yaml:"max_epochs"`
	GradClip     float64 `yaml:"grad_clip"` // <=0 disables
	AdamBeta1    float64 `yaml:"adam_beta1"`
	AdamBeta2    float64 `yaml:"adam_beta2"`
	AdamEps      float64 `yaml:"adam_eps"`

	// Data
	MaxTokens      int    `yaml:"max_tokens"` // pairs with a longer side are dropped
	DataDir        string `yaml:"data_dir"`
	DefaultFile    string `yaml:"default_file"`
	CornellDir     string `yaml:"cornell_dir"`
	EmbeddingsFile string `yaml:"embeddings_file"` // optional GloVe-format seed
	TokenizerFile  string `yaml:"tokenizer_file"`  // optional HF tokenizer.json

	// Output
	SavesDir string `yaml:"saves_dir"`
	RunsDir  string `yaml:"runs_dir"`
}

var Config = TrainingConfig{
	EmbeddingDim: 50,
	HiddenSize:   512,

	BatchSize:    32,
	LearningRate: 1e-4,
	MaxEpochs:    1000,
	GradClip:     0.1,
	AdamBeta1:    0.9,
	AdamBeta2:    0.999,
	AdamEps:      1e-8,

	MaxTokens:   10,
	DataDir:     "data/OpenSubtitles/en",
	DefaultFile: "data/OpenSubtitles/en/Crime/1994/60_101020_138057_pulp_fiction.xml.gz",
	CornellDir:  "data/cornell",

	SavesDir: "saves",
	RunsDir:  "runs",
}

// LoadConfig overlays a YAML file onto the defaults in Config.
// Missing keys keep their default values.
func LoadConfig(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &Config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
