package trainer

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/data"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/model"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/params"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/utils"
)

func testConfig() params.TrainingConfig {
	cfg := params.Config
	cfg.MaxEpochs = 2
	cfg.BatchSize = 32
	return cfg
}

func testTrainer(t *testing.T) *Trainer {
	t.Helper()
	emb := mat.NewDense(5, 4, utils.RandomArray(20, 4))
	net := model.NewPhraseModel(emb, 6)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(net, testConfig(), nil, t.TempDir(), log)
}

func tinyCorpus() []data.EncodedPair {
	return []data.EncodedPair{
		{Input: []int{0, 3, 1}, Output: []int{0, 4, 1}},
		{Input: []int{0, 4, 4, 1}, Output: []int{0, 3, 1}},
	}
}

func TestRunEpochProcessesEveryPairOnce(t *testing.T) {
	tr := testTrainer(t)
	stats, err := tr.RunEpoch(0, tinyCorpus())
	require.NoError(t, err)

	require.Equal(t, 2, stats.Pairs)
	require.Equal(t, 1, stats.Batches)
	require.False(t, math.IsNaN(stats.MeanLoss) || math.IsInf(stats.MeanLoss, 0),
		"mean loss = %v", stats.MeanLoss)
	require.False(t, math.IsNaN(stats.MeanBLEU) || math.IsInf(stats.MeanBLEU, 0),
		"mean BLEU = %v", stats.MeanBLEU)
	require.Greater(t, stats.MeanLoss, 0.0)
}

func TestRunEpochEmptySet(t *testing.T) {
	tr := testTrainer(t)
	_, err := tr.RunEpoch(0, nil)
	require.Error(t, err)
}

func TestRunEpochUpdatesWeights(t *testing.T) {
	tr := testTrainer(t)
	before := make([]*mat.Dense, len(tr.Net.Params()))
	for i, p := range tr.Net.Params() {
		before[i] = mat.DenseCopyOf(p)
	}

	_, err := tr.RunEpoch(0, tinyCorpus())
	require.NoError(t, err)

	changed := false
	for i, p := range tr.Net.Params() {
		if !mat.EqualApprox(before[i], p, 0) {
			changed = true
			break
		}
	}
	require.True(t, changed, "no parameter moved after a training epoch")
}

func TestRunCompletesConfiguredEpochs(t *testing.T) {
	tr := testTrainer(t)
	require.NoError(t, tr.Run(tinyCorpus()))
}

func TestBleuTracker(t *testing.T) {
	var b bleuTracker

	require.False(t, b.Update(0.10), "establishing epoch must not save")
	require.False(t, b.Update(0.10), "equal BLEU must not save")
	require.False(t, b.Update(0.05), "worse BLEU must not save")
	require.True(t, b.Update(0.20), "strict improvement must save")
	require.False(t, b.Update(0.15), "regression after improvement must not save")
	require.True(t, b.Update(0.25))
}

func TestCheckpointNaming(t *testing.T) {
	tr := testTrainer(t)

	saved, err := tr.checkpoint(EpochStats{Epoch: 0, MeanBLEU: 0.1})
	require.NoError(t, err)
	require.False(t, saved, "first epoch only establishes the baseline")

	saved, err = tr.checkpoint(EpochStats{Epoch: 7, MeanBLEU: 0.312})
	require.NoError(t, err)
	require.True(t, saved)

	path := filepath.Join(tr.SavesPath, "pre_bleu_0.312_07.dat")
	_, err = os.Stat(path)
	require.NoError(t, err, "expected checkpoint at %s", path)
}
