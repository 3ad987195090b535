package anomaly

import "math"

// window is a fixed-capacity rolling window with incrementally maintained
// sum and sum-of-squares, so mean/stddev are O(1) per observation.
type window struct {
	values []float64
	head   int
	size   int
	sum    float64
	sumsq  float64
}

func newWindow(capacity int) *window {
	return &window{values: make([]float64, capacity)}
}

// push appends v, evicting the oldest value once the window is full.
func (w *window) push(v float64) {
	if w.size == len(w.values) {
		old := w.values[w.head]
		w.sum -= old
		w.sumsq -= old * old
	} else {
		w.size++
	}
	w.values[w.head] = v
	w.sum += v
	w.sumsq += v * v
	w.head = (w.head + 1) % len(w.values)
}

func (w *window) mean() float64 {
	if w.size == 0 {
		return 0
	}
	return w.sum / float64(w.size)
}

// stddev is the population standard deviation of the window contents.
// Floating-point cancellation can push the variance fractionally below zero
// on near-constant series; clamp before the square root.
func (w *window) stddev() float64 {
	if w.size == 0 {
		return 0
	}
	m := w.mean()
	variance := w.sumsq/float64(w.size) - m*m
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
