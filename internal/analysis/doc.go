// Package analysis provides time-series tools for sampled observables.
//
// Consecutive trajectory frames are correlated, so the naive standard error
// of a mean underestimates the true uncertainty. The package estimates how
// many frames it takes for a series to decorrelate:
//
//   - [PowerSpectrum]: magnitude spectrum of a series
//   - [DominantFrequency]: frequency of the strongest spectral peak
//   - [Autocorrelation]: normalised autocorrelation function
//   - [IntegratedTime]: integrated autocorrelation time with automatic windowing
//   - [Analyze]: all of the above reduced to a corrected standard error
//
// # Correlated Error
//
//	st := analysis.Analyze(gyration)
//	fmt.Printf("%.4f ± %.4f (tau = %.1f frames)\n", st.Mean, st.StdErr, st.Tau)
package analysis
