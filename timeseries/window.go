package timeseries

// WindowSample pairs a fixed-length input window with the value immediately
// following it.
type WindowSample struct {
	X []float64
	Y float64
}

// Windows builds next-value samples with stride 1 over a single scaled
// segment. A segment of length L yields exactly max(L-windowSize, 0)
// samples; samples never span across segments since each segment is windowed
// independently. The input is copied into each sample so construction is
// referentially transparent.
func Windows(data []float64, windowSize int) []WindowSample {
	if windowSize <= 0 || len(data) <= windowSize {
		return []WindowSample{}
	}

	samples := make([]WindowSample, 0, len(data)-windowSize)
	for i := 0; i+windowSize < len(data); i++ {
		x := make([]float64, windowSize)
		copy(x, data[i:i+windowSize])
		samples = append(samples, WindowSample{X: x, Y: data[i+windowSize]})
	}
	return samples
}
