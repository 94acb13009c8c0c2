// Package trainer drives the epoch/batch training cycle: shuffle, teacher-
// forced forward pass, cross-entropy backward pass, gradient clipping, Adam
// step, metric aggregation and best-BLEU checkpointing.
package trainer

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/data"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/model"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/monitor"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/optimizations"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/params"
	"github.com/robot0102/Deep-Reinforcement-Learning-Hands-On/utils"
)

type Trainer struct {
	Net       *model.PhraseModel
	Opt       *optimizations.Adam
	Cfg       params.TrainingConfig
	Writer    *monitor.SummaryWriter
	SavesPath string
	Log       *slog.Logger

	best bleuTracker
}

// EpochStats aggregates one epoch: loss averaged over batches, BLEU averaged
// over every pair processed.
type EpochStats struct {
	Epoch    int
	MeanLoss float64
	MeanBLEU float64
	Pairs    int
	Batches  int
}

func New(net *model.PhraseModel, cfg params.TrainingConfig, writer *monitor.SummaryWriter, savesPath string, log *slog.Logger) *Trainer {
	return &Trainer{
		Net:       net,
		Opt:       optimizations.NewAdam(cfg.LearningRate, cfg.AdamBeta1, cfg.AdamBeta2, cfg.AdamEps, net.Params()),
		Cfg:       cfg,
		Writer:    writer,
		SavesPath: savesPath,
		Log:       log,
	}
}

// Run trains for the configured number of epochs. There is no early stop.
func (t *Trainer) Run(train []data.EncodedPair) error {
	for epoch := 0; epoch < t.Cfg.MaxEpochs; epoch++ {
		stats, err := t.RunEpoch(epoch, train)
		if err != nil {
			return err
		}
		t.Log.Info("epoch finished",
			"epoch", stats.Epoch,
			"mean_loss", fmt.Sprintf("%.3f", stats.MeanLoss),
			"mean_bleu", fmt.Sprintf("%.3f", stats.MeanBLEU))
		if t.Writer != nil {
			if err := t.Writer.AddScalar("loss", epoch, stats.MeanLoss); err != nil {
				return err
			}
			if err := t.Writer.AddScalar("bleu", epoch, stats.MeanBLEU); err != nil {
				return err
			}
		}
		saved, err := t.checkpoint(stats)
		if err != nil {
			return err
		}
		if saved {
			t.Log.Info("best BLEU updated", "bleu", fmt.Sprintf("%.3f", stats.MeanBLEU))
		}
	}
	return nil
}

// RunEpoch shuffles the training set and processes every batch once.
func (t *Trainer) RunEpoch(epoch int, train []data.EncodedPair) (EpochStats, error) {
	data.ShufflePairs(train)

	stats := EpochStats{Epoch: epoch}
	lossSum := 0.0
	bleuSum := 0.0
	for batch := range data.IterateBatches(train, t.Cfg.BatchSize) {
		loss, bleu, pairs := t.trainBatch(batch)
		lossSum += loss
		bleuSum += bleu
		stats.Pairs += pairs
		stats.Batches++
	}
	if stats.Batches == 0 || stats.Pairs == 0 {
		return stats, fmt.Errorf("epoch %d: empty training set", epoch)
	}
	stats.MeanLoss = lossSum / float64(stats.Batches)
	stats.MeanBLEU = bleuSum / float64(stats.Pairs)
	if math.IsNaN(stats.MeanLoss) || math.IsInf(stats.MeanLoss, 0) {
		return stats, fmt.Errorf("epoch %d: loss diverged: %v", epoch, stats.MeanLoss)
	}
	return stats, nil
}

type pairPass struct {
	enc     *model.EncoderState
	dec     *model.DecodeResult
	targets []int
}

// trainBatch runs one optimizer step over a batch and returns the batch's
// mean token loss, summed per-pair BLEU and the number of pairs processed.
func (t *Trainer) trainBatch(batch []data.EncodedPair) (loss, bleuSum float64, pairs int) {
	passes := make([]pairPass, 0, len(batch))
	totalTokens := 0
	for _, pair := range batch {
		enc := t.Net.Encode(pair.Input)
		dec := t.Net.DecodeTeacher(enc, pair.Output)
		targets := pair.Output[1:]
		totalTokens += len(targets)
		bleuSum += model.SeqBLEU(dec.Logits, targets)
		passes = append(passes, pairPass{enc: enc, dec: dec, targets: targets})
	}

	// Cross entropy averaged over every target token of the batch, matching
	// a single loss over the concatenated logits.
	t.Net.ZeroGrads()
	lossSum := 0.0
	for _, p := range passes {
		dLogits := mat.NewDense(t.Net.VocabSize, len(p.targets), nil)
		for ti, gold := range p.targets {
			col := mat.NewDense(t.Net.VocabSize, 1, nil)
			for i := 0; i < t.Net.VocabSize; i++ {
				col.Set(i, 0, p.dec.Logits.At(i, ti))
			}
			tokLoss, grad := utils.CrossEntropyWithIndex(col, gold)
			lossSum += tokLoss
			for i := 0; i < t.Net.VocabSize; i++ {
				dLogits.Set(i, ti, grad.At(i, 0)/float64(totalTokens))
			}
		}
		t.Net.Backward(p.enc, p.dec, dLogits)
	}

	utils.ClipGrads(t.Cfg.GradClip, t.Net.Grads()...)
	t.Opt.Step(t.Net.Params(), t.Net.Grads())

	return lossSum / float64(totalTokens), bleuSum, len(batch)
}

// checkpoint applies the best-BLEU policy: the first epoch only establishes
// the baseline; later strict improvements write a weights file named with
// the improving BLEU and epoch.
func (t *Trainer) checkpoint(stats EpochStats) (bool, error) {
	if !t.best.Update(stats.MeanBLEU) {
		return false, nil
	}
	path := filepath.Join(t.SavesPath, fmt.Sprintf("pre_bleu_%.3f_%02d.dat", stats.MeanBLEU, stats.Epoch))
	if err := t.Net.SaveWeights(path); err != nil {
		return false, fmt.Errorf("save checkpoint: %w", err)
	}
	return true, nil
}

// bleuTracker keeps the best epoch-mean BLEU seen in the run. Update reports
// whether a checkpoint should be written: strict improvements over an
// established best only, never the epoch that establishes it.
type bleuTracker struct {
	best    float64
	hasBest bool
}

func (b *bleuTracker) Update(bleu float64) bool {
	if !b.hasBest {
		b.best = bleu
		b.hasBest = true
		return false
	}
	if bleu > b.best {
		b.best = bleu
		return true
	}
	return false
}
