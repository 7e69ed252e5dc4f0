package demandcast

import (
	"time"

	"github.com/jobpulse/demandcast/timeseries"
)

// DateFormat renders week start dates in forecast responses.
const DateFormat = "2006-01-02"

// SeriesPoint is one (week start, value) observation in a response.
type SeriesPoint struct {
	WeekStart string  `json:"week_start"`
	Value     float64 `json:"value"`
}

// ModelInfo describes the model that produced a forecast.
type ModelInfo struct {
	Type      string `json:"type"`
	Window    int    `json:"window"`
	TrainedOn string `json:"trained_on"`
}

// ForecastResult is the per-request response holding the full history, the
// forecast of exactly the requested horizon, and model metadata.
type ForecastResult struct {
	Role     string        `json:"role"`
	Location string        `json:"location"`
	History  []SeriesPoint `json:"history"`
	Forecast []SeriesPoint `json:"forecast"`
	Model    ModelInfo     `json:"model"`
}

func seriesPoints(s *timeseries.Series) []SeriesPoint {
	points := make([]SeriesPoint, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		points = append(points, SeriesPoint{
			WeekStart: s.T[i].Format(DateFormat),
			Value:     s.Y[i],
		})
	}
	return points
}

func forecastPoints(lastDate time.Time, values []float64) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(values))
	for i, v := range values {
		points = append(points, SeriesPoint{
			WeekStart: lastDate.AddDate(0, 0, 7*(i+1)).Format(DateFormat),
			Value:     v,
		})
	}
	return points
}
