package strategy

import "math"

// Window is a fixed-capacity rolling window of price observations.
type Window struct {
	size   int
	values []float64
}

// NewWindow creates a rolling window holding at most size observations.
func NewWindow(size int) *Window {
	return &Window{size: size}
}

// Push appends an observation, evicting the oldest when the window is full.
func (w *Window) Push(v float64) {
	w.values = append(w.values, v)
	if len(w.values) > w.size {
		w.values = w.values[len(w.values)-w.size:]
	}
}

// Full reports whether the window holds its full capacity of observations.
func (w *Window) Full() bool { return len(w.values) >= w.size }

// Len returns the number of held observations.
func (w *Window) Len() int { return len(w.values) }

// Last returns the most recent observation, or zero when empty.
func (w *Window) Last() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return w.values[len(w.values)-1]
}

// At returns the observation n positions back from the end (At(0) == Last).
func (w *Window) At(n int) float64 {
	return w.values[len(w.values)-1-n]
}

// Values returns the underlying observations, oldest first. Callers must not
// mutate the returned slice.
func (w *Window) Values() []float64 { return w.values }

// Mean returns the arithmetic mean of the held observations.
func (w *Window) Mean() float64 { return mean(w.values) }

// StdDev returns the population standard deviation of the held observations.
func (w *Window) StdDev() float64 { return stdDev(w.values) }

// Tail returns the last n observations (all of them when n exceeds Len).
func (w *Window) Tail(n int) []float64 {
	if n >= len(w.values) {
		return w.values
	}
	return w.values[len(w.values)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation (denominator n), the flavor the
// indicator math uses for volatility bands.
func stdDev(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	mu := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// emaSeries computes the exponential moving average of xs with the given
// span, seeding with the first observation (the recursive, non-adjusted
// form: ema[i] = alpha*x[i] + (1-alpha)*ema[i-1], alpha = 2/(span+1)).
func emaSeries(xs []float64, span int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ema returns the last value of the exponential moving average of xs.
func ema(xs []float64, span int) float64 {
	s := emaSeries(xs, span)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// diffs returns the first differences of xs.
func diffs(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

// smoothedRSI is a cheap RSI proxy over the last period observations: the
// mean of recent first differences normalized by recent dispersion, mapped
// onto the 0-100 RSI scale. The epsilon keeps a flat window from dividing by
// zero.
func smoothedRSI(xs []float64, period int) float64 {
	d := diffs(xs)
	if len(d) == 0 {
		return 50
	}
	if len(d) > period {
		d = d[len(d)-period:]
	}
	tail := xs
	if len(tail) > period {
		tail = tail[len(tail)-period:]
	}
	return 100 - 100/(1+mean(d)/(stdDev(tail)+1e-5))
}
