package baseline

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable reports that no ARIMA fitter has been registered in this
// process.
var ErrUnavailable = errors.New("arima capability is not available")

// Order is the (p, d, q) ARIMA specification.
type Order struct {
	P int `json:"p" yaml:"p"`
	D int `json:"d" yaml:"d"`
	Q int `json:"q" yaml:"q"`
}

// Fitter estimates an ARIMA model on the raw training values and returns a
// function producing horizon forecasts. Registered at startup by an
// implementation package, typically via a blank import of baseline/arima.
type Fitter func(train []float64, order Order) (func(horizon int) ([]float64, error), error)

var arimaFitter Fitter

// RegisterFitter installs the process-wide ARIMA capability. Expected to be
// called from an implementation package's init.
func RegisterFitter(f Fitter) {
	arimaFitter = f
}

// ARIMA wraps the registered fitter behind the Model contract. When the
// capability is absent the model reports unavailable and evaluation skips
// it. Fit or forecast failures degrade to naive persistence so one broken
// baseline never blocks an evaluation run.
type ARIMA struct {
	order    Order
	forecast func(horizon int) ([]float64, error)
	fallback float64
	fitted   bool
}

// NewARIMA returns an unfitted ARIMA baseline with the given order.
func NewARIMA(order Order) *ARIMA {
	return &ARIMA{order: order}
}

func (a *ARIMA) Name() string {
	return "arima"
}

// Available reports whether an ARIMA fitter is registered in this process.
func (a *ARIMA) Available() bool {
	return arimaFitter != nil
}

func (a *ARIMA) Fit(train []float64) error {
	if !a.Available() {
		return ErrUnavailable
	}
	if len(train) == 0 {
		return ErrNoFitData
	}

	a.fallback = train[len(train)-1]
	forecast, err := arimaFitter(train, a.order)
	if err != nil {
		log.Warn().Err(err).
			Ints("order", []int{a.order.P, a.order.D, a.order.Q}).
			Msg("arima fit failed, falling back to naive persistence")
		a.forecast = nil
	} else {
		a.forecast = forecast
	}
	a.fitted = true
	return nil
}

func (a *ARIMA) Predict(horizon int) ([]float64, error) {
	if !a.fitted {
		return nil, ErrNotFitted
	}
	if a.forecast == nil {
		return repeat(a.fallback, horizon), nil
	}
	out, err := a.forecast(horizon)
	if err != nil {
		log.Warn().Err(err).Msg("arima forecast failed, falling back to naive persistence")
		return repeat(a.fallback, horizon), nil
	}
	return out, nil
}
