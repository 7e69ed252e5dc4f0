// Package lstm implements the stacked recurrent regressor used to predict
// the next weekly posting count from a fixed window of scaled history, along
// with its gradient computation and training loop.
package lstm

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	ErrEmptyWindow       = errors.New("input window is empty")
	ErrInvalidConfig     = errors.New("invalid network configuration")
	ErrWeightLenMismatch = errors.New("weight lengths do not match architecture")
)

// Config describes the network architecture. The hyperparameters stored in
// an exported artifact must match this struct exactly to rebuild the
// network.
type Config struct {
	InputSize  int     `json:"input_size" yaml:"input_size"`
	HiddenSize int     `json:"hidden_size" yaml:"hidden_size"`
	NumLayers  int     `json:"num_layers" yaml:"num_layers"`
	Dropout    float64 `json:"dropout" yaml:"dropout"`
}

// NewDefaultConfig returns the standard univariate two layer architecture.
func NewDefaultConfig() Config {
	return Config{
		InputSize:  1,
		HiddenSize: 64,
		NumLayers:  2,
		Dropout:    0.2,
	}
}

func (c Config) validate() error {
	if c.InputSize != 1 {
		return fmt.Errorf("input size must be 1 for a univariate series, got %d, %w", c.InputSize, ErrInvalidConfig)
	}
	if c.HiddenSize < 1 {
		return fmt.Errorf("hidden size must be positive, got %d, %w", c.HiddenSize, ErrInvalidConfig)
	}
	if c.NumLayers < 1 {
		return fmt.Errorf("num layers must be positive, got %d, %w", c.NumLayers, ErrInvalidConfig)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %f, %w", c.Dropout, ErrInvalidConfig)
	}
	return nil
}

// LayerWeights holds one recurrent layer's parameters. Gate rows are ordered
// input, forget, cell, output. Wx is 4*hidden x in and Wh is 4*hidden x
// hidden, both row major.
type LayerWeights struct {
	Wx []float64 `json:"wx"`
	Wh []float64 `json:"wh"`
	B  []float64 `json:"b"`
}

// Weights is the serializable form of all network parameters.
type Weights struct {
	Layers []LayerWeights `json:"layers"`
	HeadW  []float64      `json:"head_w"`
	HeadB  float64        `json:"head_b"`
}

// Network is a stacked LSTM with a linear head projecting the final time
// step's hidden state to a single scalar. Weights are mutated only by the
// Trainer; forward evaluation through Predict is deterministic.
type Network struct {
	cfg    Config
	layers []LayerWeights
	headW  []float64
	headB  []float64
}

// New initializes a network with weights drawn uniformly from
// [-1/sqrt(hidden), 1/sqrt(hidden)] using the provided seed.
func New(cfg Config, seed uint64) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewPCG(seed, seed))
	k := 1.0 / math.Sqrt(float64(cfg.HiddenSize))
	uniform := func(n int) []float64 {
		w := make([]float64, n)
		for i := range w {
			w[i] = rnd.Float64()*2*k - k
		}
		return w
	}

	n := &Network{cfg: cfg}
	for l := 0; l < cfg.NumLayers; l++ {
		in := n.layerInputSize(l)
		n.layers = append(n.layers, LayerWeights{
			Wx: uniform(4 * cfg.HiddenSize * in),
			Wh: uniform(4 * cfg.HiddenSize * cfg.HiddenSize),
			B:  uniform(4 * cfg.HiddenSize),
		})
	}
	n.headW = uniform(cfg.HiddenSize)
	n.headB = uniform(1)
	return n, nil
}

// NewFromWeights rebuilds a network from exported weights, validating every
// parameter length against the architecture.
func NewFromWeights(cfg Config, w Weights) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(w.Layers) != cfg.NumLayers {
		return nil, fmt.Errorf("got %d layers, expected %d, %w", len(w.Layers), cfg.NumLayers, ErrWeightLenMismatch)
	}

	n := &Network{cfg: cfg}
	for l, lw := range w.Layers {
		in := n.layerInputSize(l)
		if len(lw.Wx) != 4*cfg.HiddenSize*in || len(lw.Wh) != 4*cfg.HiddenSize*cfg.HiddenSize || len(lw.B) != 4*cfg.HiddenSize {
			return nil, fmt.Errorf("layer %d has wx=%d wh=%d b=%d, %w", l, len(lw.Wx), len(lw.Wh), len(lw.B), ErrWeightLenMismatch)
		}
		n.layers = append(n.layers, LayerWeights{
			Wx: append([]float64(nil), lw.Wx...),
			Wh: append([]float64(nil), lw.Wh...),
			B:  append([]float64(nil), lw.B...),
		})
	}
	if len(w.HeadW) != cfg.HiddenSize {
		return nil, fmt.Errorf("head has %d weights, expected %d, %w", len(w.HeadW), cfg.HiddenSize, ErrWeightLenMismatch)
	}
	n.headW = append([]float64(nil), w.HeadW...)
	n.headB = []float64{w.HeadB}
	return n, nil
}

// Config returns the network architecture.
func (n *Network) Config() Config {
	return n.cfg
}

// Weights returns a deep copy of the current parameters for serialization.
func (n *Network) Weights() Weights {
	w := Weights{
		HeadW: append([]float64(nil), n.headW...),
		HeadB: n.headB[0],
	}
	for _, lw := range n.layers {
		w.Layers = append(w.Layers, LayerWeights{
			Wx: append([]float64(nil), lw.Wx...),
			Wh: append([]float64(nil), lw.Wh...),
			B:  append([]float64(nil), lw.B...),
		})
	}
	return w
}

// Predict runs a deterministic forward pass over the scaled window with
// dropout disabled and returns the next-value prediction.
func (n *Network) Predict(window []float64) (float64, error) {
	if len(window) == 0 {
		return 0, ErrEmptyWindow
	}
	fc := n.forward(window, false, nil)
	return fc.out, nil
}

func (n *Network) layerInputSize(l int) int {
	if l == 0 {
		return n.cfg.InputSize
	}
	return n.cfg.HiddenSize
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// layerCache stores the per-timestep activations needed for gradient
// computation.
type layerCache struct {
	x     [][]float64
	i     [][]float64
	f     [][]float64
	g     [][]float64
	o     [][]float64
	cPrev [][]float64
	c     [][]float64
	tanhC [][]float64
	h     [][]float64
	mask  [][]float64
}

type forwardCache struct {
	steps  int
	layers []layerCache
	out    float64
}

func (n *Network) forward(window []float64, train bool, rnd *rand.Rand) *forwardCache {
	steps := len(window)
	hidden := n.cfg.HiddenSize

	xs := make([][]float64, steps)
	for t, v := range window {
		xs[t] = []float64{v}
	}

	fc := &forwardCache{
		steps:  steps,
		layers: make([]layerCache, len(n.layers)),
	}

	for l, lw := range n.layers {
		in := n.layerInputSize(l)
		lc := layerCache{
			x:     xs,
			i:     make([][]float64, steps),
			f:     make([][]float64, steps),
			g:     make([][]float64, steps),
			o:     make([][]float64, steps),
			cPrev: make([][]float64, steps),
			c:     make([][]float64, steps),
			tanhC: make([][]float64, steps),
			h:     make([][]float64, steps),
		}

		h := make([]float64, hidden)
		c := make([]float64, hidden)
		outs := make([][]float64, steps)
		for t := 0; t < steps; t++ {
			xt := xs[t]
			it := make([]float64, hidden)
			ft := make([]float64, hidden)
			gt := make([]float64, hidden)
			ot := make([]float64, hidden)
			for r := 0; r < 4*hidden; r++ {
				sum := lw.B[r]
				for ci := 0; ci < in; ci++ {
					sum += lw.Wx[r*in+ci] * xt[ci]
				}
				for j := 0; j < hidden; j++ {
					sum += lw.Wh[r*hidden+j] * h[j]
				}
				switch {
				case r < hidden:
					it[r] = sigmoid(sum)
				case r < 2*hidden:
					ft[r-hidden] = sigmoid(sum)
				case r < 3*hidden:
					gt[r-2*hidden] = math.Tanh(sum)
				default:
					ot[r-3*hidden] = sigmoid(sum)
				}
			}

			ct := make([]float64, hidden)
			tc := make([]float64, hidden)
			ht := make([]float64, hidden)
			for j := 0; j < hidden; j++ {
				ct[j] = ft[j]*c[j] + it[j]*gt[j]
				tc[j] = math.Tanh(ct[j])
				ht[j] = ot[j] * tc[j]
			}

			lc.i[t], lc.f[t], lc.g[t], lc.o[t] = it, ft, gt, ot
			lc.cPrev[t] = c
			lc.c[t], lc.tanhC[t], lc.h[t] = ct, tc, ht
			outs[t] = ht
			h, c = ht, ct
		}

		// inverted dropout between recurrent layers only
		if l < len(n.layers)-1 && train && n.cfg.Dropout > 0 {
			keep := 1.0 - n.cfg.Dropout
			masks := make([][]float64, steps)
			next := make([][]float64, steps)
			for t := 0; t < steps; t++ {
				mask := make([]float64, hidden)
				masked := make([]float64, hidden)
				for j := 0; j < hidden; j++ {
					if rnd.Float64() < keep {
						mask[j] = 1.0 / keep
						masked[j] = outs[t][j] * mask[j]
					}
				}
				masks[t] = mask
				next[t] = masked
			}
			lc.mask = masks
			xs = next
		} else {
			xs = outs
		}
		fc.layers[l] = lc
	}

	hLast := fc.layers[len(fc.layers)-1].h[steps-1]
	out := n.headB[0]
	for j := 0; j < hidden; j++ {
		out += n.headW[j] * hLast[j]
	}
	fc.out = out
	return fc
}

// gradients mirrors the parameter shapes and accumulates across a batch.
type gradients struct {
	layers []LayerWeights
	headW  []float64
	headB  []float64
}

func newGradients(n *Network) *gradients {
	g := &gradients{
		headW: make([]float64, len(n.headW)),
		headB: make([]float64, 1),
	}
	for _, lw := range n.layers {
		g.layers = append(g.layers, LayerWeights{
			Wx: make([]float64, len(lw.Wx)),
			Wh: make([]float64, len(lw.Wh)),
			B:  make([]float64, len(lw.B)),
		})
	}
	return g
}

func (g *gradients) zero() {
	for _, s := range g.slices() {
		for i := range s {
			s[i] = 0
		}
	}
}

func (g *gradients) slices() [][]float64 {
	out := make([][]float64, 0, 3*len(g.layers)+2)
	for _, lw := range g.layers {
		out = append(out, lw.Wx, lw.Wh, lw.B)
	}
	return append(out, g.headW, g.headB)
}

// parameters returns the live parameter slices in the same order as
// gradients.slices.
func (n *Network) parameters() [][]float64 {
	out := make([][]float64, 0, 3*len(n.layers)+2)
	for _, lw := range n.layers {
		out = append(out, lw.Wx, lw.Wh, lw.B)
	}
	return append(out, n.headW, n.headB)
}

// backward runs truncated backpropagation through time over a single sample
// given dOut, the loss gradient with respect to the network output,
// accumulating parameter gradients into g.
func (n *Network) backward(fc *forwardCache, dOut float64, g *gradients) {
	steps := fc.steps
	hidden := n.cfg.HiddenSize
	top := len(n.layers) - 1

	hLast := fc.layers[top].h[steps-1]
	for j := 0; j < hidden; j++ {
		g.headW[j] += dOut * hLast[j]
	}
	g.headB[0] += dOut

	// gradient flowing into each layer's hidden outputs from above
	dhAbove := make([][]float64, steps)
	for t := range dhAbove {
		dhAbove[t] = make([]float64, hidden)
	}
	for j := 0; j < hidden; j++ {
		dhAbove[steps-1][j] = dOut * n.headW[j]
	}

	for l := top; l >= 0; l-- {
		lw := n.layers[l]
		lc := fc.layers[l]
		gl := g.layers[l]
		in := n.layerInputSize(l)

		var dhBelow [][]float64
		if l > 0 {
			dhBelow = make([][]float64, steps)
			for t := range dhBelow {
				dhBelow[t] = make([]float64, hidden)
			}
		}

		dhNext := make([]float64, hidden)
		dcNext := make([]float64, hidden)
		dz := make([]float64, 4*hidden)
		dx := make([]float64, in)
		for t := steps - 1; t >= 0; t-- {
			for j := 0; j < hidden; j++ {
				dh := dhAbove[t][j] + dhNext[j]
				do := dh * lc.tanhC[t][j]
				dc := dh*lc.o[t][j]*(1-lc.tanhC[t][j]*lc.tanhC[t][j]) + dcNext[j]
				di := dc * lc.g[t][j]
				dg := dc * lc.i[t][j]
				df := dc * lc.cPrev[t][j]
				dz[j] = di * lc.i[t][j] * (1 - lc.i[t][j])
				dz[hidden+j] = df * lc.f[t][j] * (1 - lc.f[t][j])
				dz[2*hidden+j] = dg * (1 - lc.g[t][j]*lc.g[t][j])
				dz[3*hidden+j] = do * lc.o[t][j] * (1 - lc.o[t][j])
				dcNext[j] = dc * lc.f[t][j]
			}

			hPrev := make([]float64, hidden)
			if t > 0 {
				hPrev = lc.h[t-1]
			}
			for j := range dhNext {
				dhNext[j] = 0
			}
			for ci := range dx {
				dx[ci] = 0
			}
			for r := 0; r < 4*hidden; r++ {
				dzr := dz[r]
				gl.B[r] += dzr
				for ci := 0; ci < in; ci++ {
					gl.Wx[r*in+ci] += dzr * lc.x[t][ci]
					dx[ci] += lw.Wx[r*in+ci] * dzr
				}
				for j := 0; j < hidden; j++ {
					gl.Wh[r*hidden+j] += dzr * hPrev[j]
					dhNext[j] += lw.Wh[r*hidden+j] * dzr
				}
			}

			if l > 0 {
				below := fc.layers[l-1]
				for j := 0; j < hidden; j++ {
					d := dx[j]
					if below.mask != nil {
						d *= below.mask[t][j]
					}
					dhBelow[t][j] += d
				}
			}
		}

		if l > 0 {
			dhAbove = dhBelow
		}
	}
}
