package demandcast

// ServiceOptions tunes the forecast service boundaries.
type ServiceOptions struct {
	// MaxHistoryWeeks caps how much history is retrieved per request.
	MaxHistoryWeeks int
	// MaxHorizon caps the number of future weeks a request may ask for.
	MaxHorizon int
}

// NewDefaultServiceOptions returns the standard serving limits of roughly
// two years of history and one year of forecast.
func NewDefaultServiceOptions() *ServiceOptions {
	return &ServiceOptions{
		MaxHistoryWeeks: 104,
		MaxHorizon:      52,
	}
}
