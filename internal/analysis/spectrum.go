package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// windowFactor is the Sokal window constant: the sum over the
// autocorrelation stops at the first lag t with t >= windowFactor*tau(t).
const windowFactor = 5.0

// PowerSpectrum returns |X_k| for k = 0..n/2 of the mean-removed series.
func PowerSpectrum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	mean := stat.Mean(series, nil)
	centred := make([]float64, len(series))
	for i, v := range series {
		centred[i] = v - mean
	}
	coeffs := fourier.NewFFT(len(series)).Coefficients(nil, centred)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency returns the frequency of the strongest non-zero bin of
// the power spectrum of a series sampled every interval time units. It
// reports false for series shorter than two samples or without variation.
func DominantFrequency(series []float64, interval float64) (float64, bool) {
	if len(series) < 2 || interval <= 0 {
		return 0, false
	}
	ps := PowerSpectrum(series)
	peak := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[peak] || peak == 0 {
			peak = k
		}
	}
	if peak == 0 || ps[peak] == 0 {
		return 0, false
	}
	return float64(peak) / (float64(len(series)) * interval), true
}

// Autocorrelation returns rho(t) for t = 0..n-1, normalised so rho(0) = 1.
// A constant series has no defined correlation and yields rho = {1, 0, ...}.
func Autocorrelation(series []float64) []float64 {
	n := len(series)
	if n == 0 {
		return nil
	}
	mean := stat.Mean(series, nil)

	// zero padding to 2n turns the circular correlation into a linear one
	padded := make([]float64, 2*n)
	for i, v := range series {
		padded[i] = v - mean
	}
	fft := fourier.NewFFT(2 * n)
	coeffs := fft.Coefficients(nil, padded)
	for i, c := range coeffs {
		coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	raw := fft.Sequence(nil, coeffs)

	acf := make([]float64, n)
	acf[0] = 1
	if raw[0] <= 0 {
		return acf
	}
	for t := 1; t < n; t++ {
		acf[t] = raw[t] / raw[0]
	}
	return acf
}

// IntegratedTime returns tau = 1/2 + sum rho(t), summed up to the first
// lag t with t >= 5*tau, and the lag it stopped at.
func IntegratedTime(acf []float64) (tau float64, window int) {
	if len(acf) == 0 {
		return 0.5, 0
	}
	tau = 0.5
	for t := 1; t < len(acf); t++ {
		tau += acf[t]
		if float64(t) >= windowFactor*tau {
			return math.Max(tau, 0.5), t
		}
	}
	return math.Max(tau, 0.5), len(acf) - 1
}

// Stats summarises a correlated series.
type Stats struct {
	Mean float64
	// NaiveErr treats every frame as independent.
	NaiveErr float64
	// StdErr inflates NaiveErr by sqrt(2*Tau).
	StdErr float64
	// Tau is the integrated autocorrelation time in frames.
	Tau    float64
	Window int
	// Effective is the number of independent samples, n/(2*Tau).
	Effective float64
}

func Analyze(series []float64) Stats {
	n := len(series)
	if n == 0 {
		return Stats{}
	}
	mean, std := stat.PopMeanStdDev(series, nil)
	tau, window := IntegratedTime(Autocorrelation(series))
	naive := std / math.Sqrt(float64(n))
	return Stats{
		Mean:      mean,
		NaiveErr:  naive,
		StdErr:    naive * math.Sqrt(2*tau),
		Tau:       tau,
		Window:    window,
		Effective: float64(n) / (2 * tau),
	}
}
