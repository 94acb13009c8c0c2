// Command train fits the phrase model on movie-subtitle dialogue pairs with
// teacher forcing, tracking BLEU and checkpointing every improvement.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/cornell"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/data"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/model"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/monitor"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/params"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/subtitles"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/trainer"
)

var (
	flagCornell = flag.String("cornell", "", "Use the Cornell Movie-Dialogs corpus; value is a genre filter or empty for full data")
	flagData    = flag.String("data", params.Config.DefaultFile, "Subtitle file to load, or category dir; empty loads the whole data dir")
	flagCuda    = flag.Bool("cuda", false, "Enable the accelerated BLAS backend (requires a build with -tags accel)")
	flagConfig  = flag.String("config", "", "Optional YAML file overriding hyperparameter defaults")
	flagName    string
)

func init() {
	flag.StringVar(&flagName, "n", "", "Name of the run (required)")
	flag.StringVar(&flagName, "name", "", "Name of the run (required)")
}

func main() {
	flag.Parse()
	if flagName == "" {
		fmt.Fprintln(os.Stderr, "Usage: train [-cornell genre] [-data path] [-cuda] [-config file] -n <run-name>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *flagConfig != "" {
		if err := params.LoadConfig(*flagConfig); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to load config:", err)
			os.Exit(1)
		}
	}
	cfg := params.Config

	savesPath := filepath.Join(cfg.SavesDir, flagName)
	if err := os.MkdirAll(savesPath, 0755); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create saves dir:", err)
		os.Exit(1)
	}

	log, closeLog := params.SetupLogger(filepath.Join(savesPath, "train.log"), params.LogLevelFromEnv())
	defer closeLog()

	if *flagCuda {
		if useAcceleratedBLAS() {
			log.Info("accelerated BLAS backend enabled")
		} else {
			log.Warn("binary built without accel tag, continuing on the pure Go BLAS")
		}
	}

	if cfg.TokenizerFile != "" {
		if err := subtitles.UseTokenizerFile(cfg.TokenizerFile); err != nil {
			log.Error("failed to load tokenizer file", "file", cfg.TokenizerFile, "error", err)
			os.Exit(1)
		}
	}

	phrasePairs, err := loadData(log, cfg)
	if err != nil {
		log.Error("no dialogues found, exit", "error", err)
		os.Exit(1)
	}

	vocab, emb, err := data.ReadEmbeddings(phrasePairs, cfg.EmbeddingDim, cfg.EmbeddingsFile)
	if err != nil {
		log.Error("failed to build embeddings", "error", err)
		os.Exit(1)
	}
	log.Info("obtained phrase pairs", "pairs", len(phrasePairs), "uniq_words", vocab.Size())

	train := data.EncodePhrasePairs(phrasePairs, vocab)
	logSamplePhrases(log, phrasePairs, train)
	log.Info("training data converted", "samples", len(train))

	if err := data.SaveEmbeddings(savesPath, vocab, emb); err != nil {
		log.Error("failed to save embeddings", "error", err)
		os.Exit(1)
	}

	net := model.NewPhraseModel(emb, cfg.HiddenSize)
	log.Info("model created",
		"emb_size", net.EmbDim, "dict_size", net.VocabSize, "hid_size", net.HiddenSize)

	writer, err := monitor.NewSummaryWriter(cfg.RunsDir, flagName)
	if err != nil {
		log.Error("failed to create summary writer", "error", err)
		os.Exit(1)
	}

	t := trainer.New(net, cfg, writer, savesPath, log)
	if err := t.Run(train); err != nil {
		writer.Close()
		log.Error("training failed", "error", err)
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		log.Error("failed to close summary writer", "error", err)
		os.Exit(1)
	}
}

// loadData resolves the configured source into phrase pairs. Corpus mode
// takes precedence over file/directory mode.
func loadData(log *slog.Logger, cfg params.TrainingConfig) ([]subtitles.PhrasePair, error) {
	var (
		dialogues []subtitles.Dialogue
		err       error
	)
	if cornellSelected() {
		dialogues, err = cornell.LoadDialogues(cfg.CornellDir, *flagCornell)
	} else {
		switch {
		case strings.HasSuffix(*flagData, ".xml.gz"):
			dialogues, err = subtitles.ReadFile(*flagData)
		case *flagData == "":
			dialogues, err = subtitles.ReadDir(cfg.DataDir)
		default:
			dialogues, err = subtitles.ReadDir(filepath.Join(cfg.DataDir, *flagData))
		}
	}
	if err != nil {
		return nil, err
	}
	if len(dialogues) == 0 {
		return nil, fmt.Errorf("dialogue set is empty")
	}
	log.Info("loaded dialogues, generating training pairs",
		"dialogues", len(dialogues), "phrases", subtitles.PhraseCount(dialogues))
	pairs := subtitles.DialoguesToPairs(dialogues, cfg.MaxTokens)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no phrase pairs within %d tokens", cfg.MaxTokens)
	}
	return pairs, nil
}

// cornellSelected reports whether --cornell was passed at all; the empty
// string is a valid value meaning the full corpus.
func cornellSelected() bool {
	selected := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "cornell" {
			selected = true
		}
	})
	return selected
}

func logSamplePhrases(log *slog.Logger, pairs []subtitles.PhrasePair, encoded []data.EncodedPair) {
	log.Info("sample phrases:")
	for i := 0; i < len(pairs) && i < 10; i++ {
		log.Info("sample pair",
			"idx", i,
			"input", strings.Join(pairs[i].First.Words, " "),
			"output", strings.Join(pairs[i].Second.Words, " "))
		log.Info("sample encoded", "idx", i, "input", encoded[i].Input, "output", encoded[i].Output)
	}
}
