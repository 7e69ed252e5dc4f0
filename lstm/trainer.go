package lstm

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/jobpulse/demandcast/timeseries"
)

var (
	ErrNoTrainingSamples   = errors.New("no training samples")
	ErrNoValidationSamples = errors.New("no validation samples")
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8

	logEveryEpochs = 10
)

// TrainConfig controls the optimization loop.
type TrainConfig struct {
	Epochs       int     `json:"epochs" yaml:"epochs"`
	BatchSize    int     `json:"batch_size" yaml:"batch_size"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	// Patience is the number of consecutive epochs without a strict
	// improvement of the best validation loss before stopping. The weights
	// at the stopping epoch are kept as-is; no best-epoch checkpoint is
	// restored, so an exported artifact reflects the final epoch.
	Patience int    `json:"patience" yaml:"patience"`
	Seed     uint64 `json:"seed" yaml:"seed"`
}

// NewDefaultTrainConfig mirrors the defaults used for the weekly posting
// series.
func NewDefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       50,
		BatchSize:    32,
		LearningRate: 0.001,
		Patience:     10,
		Seed:         42,
	}
}

// TrainResult reports per-epoch losses and the stopping condition.
type TrainResult struct {
	EpochsRun    int
	TrainLoss    []float64
	ValLoss      []float64
	BestValLoss  float64
	EarlyStopped bool
}

// Trainer runs minibatch Adam over window samples with mean squared error
// loss. Training is single threaded and sequential by epoch.
type Trainer struct {
	cfg TrainConfig
}

// NewTrainer returns a trainer using the provided config, falling back to
// defaults when nil.
func NewTrainer(cfg *TrainConfig) *Trainer {
	if cfg == nil {
		def := NewDefaultTrainConfig()
		cfg = &def
	}
	c := *cfg
	if c.Epochs < 1 {
		c.Epochs = NewDefaultTrainConfig().Epochs
	}
	if c.BatchSize < 1 {
		c.BatchSize = NewDefaultTrainConfig().BatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = NewDefaultTrainConfig().LearningRate
	}
	if c.Patience < 1 {
		c.Patience = NewDefaultTrainConfig().Patience
	}
	return &Trainer{cfg: c}
}

// Fit optimizes the network in place over the training samples, evaluating
// validation loss once per epoch with gradient updates disabled. Early
// stopping triggers once the patience budget is exhausted.
func (tr *Trainer) Fit(net *Network, train, validation []timeseries.WindowSample) (*TrainResult, error) {
	if len(train) == 0 {
		return nil, ErrNoTrainingSamples
	}
	if len(validation) == 0 {
		return nil, ErrNoValidationSamples
	}

	rnd := rand.New(rand.NewPCG(tr.cfg.Seed, tr.cfg.Seed))
	grads := newGradients(net)
	opt := newAdam(net, tr.cfg.LearningRate)

	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	res := &TrainResult{BestValLoss: math.Inf(1)}
	patienceCount := 0

	for epoch := 0; epoch < tr.cfg.Epochs; epoch++ {
		rnd.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		epochLoss := 0.0
		for start := 0; start < len(order); start += tr.cfg.BatchSize {
			end := min(start+tr.cfg.BatchSize, len(order))
			batch := order[start:end]

			grads.zero()
			for _, idx := range batch {
				sample := train[idx]
				fc := net.forward(sample.X, true, rnd)
				diff := fc.out - sample.Y
				epochLoss += diff * diff
				net.backward(fc, 2*diff/float64(len(batch)), grads)
			}
			opt.step(net, grads)
		}

		trainLoss := epochLoss / float64(len(train))
		valLoss := meanSquaredLoss(net, validation)
		res.TrainLoss = append(res.TrainLoss, trainLoss)
		res.ValLoss = append(res.ValLoss, valLoss)
		res.EpochsRun = epoch + 1

		if (epoch+1)%logEveryEpochs == 0 {
			log.Debug().
				Int("epoch", epoch+1).
				Float64("train_loss", trainLoss).
				Float64("val_loss", valLoss).
				Msg("training epoch")
		}

		if valLoss < res.BestValLoss {
			res.BestValLoss = valLoss
			patienceCount = 0
			continue
		}
		patienceCount++
		if patienceCount >= tr.cfg.Patience {
			res.EarlyStopped = true
			log.Info().Int("epoch", epoch+1).Float64("best_val_loss", res.BestValLoss).Msg("early stopping")
			break
		}
	}

	return res, nil
}

func meanSquaredLoss(net *Network, samples []timeseries.WindowSample) float64 {
	loss := 0.0
	for _, sample := range samples {
		fc := net.forward(sample.X, false, nil)
		diff := fc.out - sample.Y
		loss += diff * diff
	}
	return loss / float64(len(samples))
}

// adam holds first and second moment estimates per parameter slice.
type adam struct {
	lr float64
	t  int
	m  [][]float64
	v  [][]float64
}

func newAdam(net *Network, lr float64) *adam {
	a := &adam{lr: lr}
	for _, p := range net.parameters() {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) step(net *Network, grads *gradients) {
	a.t++
	c1 := 1.0 - math.Pow(adamBeta1, float64(a.t))
	c2 := 1.0 - math.Pow(adamBeta2, float64(a.t))

	params := net.parameters()
	gs := grads.slices()
	for i, p := range params {
		g := gs[i]
		for j := range p {
			a.m[i][j] = adamBeta1*a.m[i][j] + (1-adamBeta1)*g[j]
			a.v[i][j] = adamBeta2*a.v[i][j] + (1-adamBeta2)*g[j]*g[j]
			mHat := a.m[i][j] / c1
			vHat := a.v[i][j] / c2
			p[j] -= a.lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
		}
	}
}
