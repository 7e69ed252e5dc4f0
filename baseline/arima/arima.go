// Package arima provides the optional ARIMA baseline capability using
// Hannan-Rissanen estimation on the differenced series. Importing this
// package registers the fitter with the baseline package:
//
//	import _ "github.com/jobpulse/demandcast/baseline/arima"
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/jobpulse/demandcast/baseline"
)

var (
	ErrInvalidOrder       = errors.New("arima order terms must be non-negative")
	ErrTooFewObservations = errors.New("too few observations for arima order")
)

func init() {
	baseline.RegisterFitter(Fit)
}

// model holds the estimated ARMA coefficients on the differenced series
// along with the state needed to roll forecasts forward.
type model struct {
	order     baseline.Order
	intercept float64
	ar        []float64
	ma        []float64

	history   []float64 // differenced series
	residuals []float64 // stage one innovations aligned with history
	lasts     []float64 // per-level last values for integration
}

// Fit estimates an ARIMA(p,d,q) model and returns a forecast function. The
// signature matches baseline.Fitter.
func Fit(train []float64, order baseline.Order) (func(horizon int) ([]float64, error), error) {
	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, ErrInvalidOrder
	}

	series := append([]float64(nil), train...)
	lasts := make([]float64, 0, order.D)
	for i := 0; i < order.D; i++ {
		if len(series) < 2 {
			return nil, fmt.Errorf("cannot difference %d observations, %w", len(series), ErrTooFewObservations)
		}
		lasts = append(lasts, series[len(series)-1])
		series = diff(series)
	}

	m := &model{order: order, history: series, lasts: lasts}
	if err := m.estimate(); err != nil {
		return nil, err
	}
	return m.forecast, nil
}

// ridgeLambda keeps the regression matrices full column rank. Real posting
// series often carry near-collinear lag columns (constant or trending
// segments), which would make a plain QR solve fail as near-singular.
const ridgeLambda = 1e-6

// solveRidge computes the ridge-regularized least squares solution by
// stacking sqrt(lambda) identity rows under the design matrix.
func solveRidge(x, y *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()

	aug := mat.NewDense(rows+cols, cols, nil)
	augY := mat.NewDense(rows+cols, 1, nil)
	aug.Slice(0, rows, 0, cols).(*mat.Dense).Copy(x)
	augY.Slice(0, rows, 0, 1).(*mat.Dense).Copy(y)
	penalty := math.Sqrt(ridgeLambda)
	for i := 0; i < cols; i++ {
		aug.Set(rows+i, i, penalty)
	}

	var beta mat.Dense
	if err := beta.Solve(aug, augY); err != nil {
		return nil, err
	}
	return &beta, nil
}

func diff(xs []float64) []float64 {
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

func (m *model) estimate() error {
	p, q := m.order.P, m.order.Q
	n := len(m.history)

	m.residuals = make([]float64, n)
	if q > 0 {
		// stage one: long autoregression to recover innovations
		long := max(p+q, min(10, n/4))
		if err := m.longARResiduals(long); err != nil {
			return err
		}
	}

	if p == 0 && q == 0 {
		m.intercept = stat.Mean(m.history, nil)
		return nil
	}

	start := p
	if q > 0 {
		long := max(p+q, min(10, n/4))
		start = max(p, long+q)
	}
	rows := n - start
	cols := 1 + p + q
	if rows < cols+1 {
		return fmt.Errorf("need %d rows for %d coefficients, got %d, %w", cols+1, cols, rows, ErrTooFewObservations)
	}

	x := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		t := start + r
		x.Set(r, 0, 1.0)
		for i := 0; i < p; i++ {
			x.Set(r, 1+i, m.history[t-1-i])
		}
		for j := 0; j < q; j++ {
			x.Set(r, 1+p+j, m.residuals[t-1-j])
		}
		y.Set(r, 0, m.history[t])
	}

	beta, err := solveRidge(x, y)
	if err != nil {
		return fmt.Errorf("unable to solve arma least squares, %w", err)
	}

	m.intercept = beta.At(0, 0)
	m.ar = make([]float64, p)
	for i := 0; i < p; i++ {
		m.ar[i] = beta.At(1+i, 0)
	}
	m.ma = make([]float64, q)
	for j := 0; j < q; j++ {
		m.ma[j] = beta.At(1+p+j, 0)
	}
	return nil
}

// longARResiduals fits an AR(long) by least squares and stores its
// innovations, the standard first stage of Hannan-Rissanen.
func (m *model) longARResiduals(long int) error {
	n := len(m.history)
	rows := n - long
	cols := 1 + long
	if rows < cols+1 {
		return fmt.Errorf("need %d observations beyond lag %d, got %d, %w", cols+1, long, rows, ErrTooFewObservations)
	}

	x := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		t := long + r
		x.Set(r, 0, 1.0)
		for i := 0; i < long; i++ {
			x.Set(r, 1+i, m.history[t-1-i])
		}
		y.Set(r, 0, m.history[t])
	}

	beta, err := solveRidge(x, y)
	if err != nil {
		return fmt.Errorf("unable to solve long autoregression, %w", err)
	}

	for t := long; t < n; t++ {
		fitted := beta.At(0, 0)
		for i := 0; i < long; i++ {
			fitted += beta.At(1+i, 0) * m.history[t-1-i]
		}
		m.residuals[t] = m.history[t] - fitted
	}
	return nil
}

// forecast rolls the ARMA recursion forward with future innovations set to
// zero and integrates the differenced predictions back to the raw scale.
func (m *model) forecast(horizon int) ([]float64, error) {
	if horizon < 1 {
		return []float64{}, nil
	}

	hist := append([]float64(nil), m.history...)
	resid := append([]float64(nil), m.residuals...)

	preds := make([]float64, 0, horizon)
	for s := 0; s < horizon; s++ {
		yhat := m.intercept
		for i := 0; i < m.order.P; i++ {
			yhat += m.ar[i] * hist[len(hist)-1-i]
		}
		for j := 0; j < m.order.Q; j++ {
			yhat += m.ma[j] * resid[len(resid)-1-j]
		}
		hist = append(hist, yhat)
		resid = append(resid, 0.0)
		preds = append(preds, yhat)
	}

	for i := len(m.lasts) - 1; i >= 0; i-- {
		prev := m.lasts[i]
		for j := range preds {
			preds[j] += prev
			prev = preds[j]
		}
	}
	return preds, nil
}
