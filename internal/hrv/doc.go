// Package hrv computes heart-rate-variability metrics from an RR series.
//
// Three families are provided, each independent of the others:
//
//   - Time: AVNN, SDNN, RMSSD and pNN50.
//   - PSD: Welch power spectral density of the instantaneous heart rate with
//     VLF, LF and HF band powers.
//   - Nonlinear: Poincaré SD1/SD2, sample entropy and the short-term DFA
//     exponent.
//
// Degenerate input never produces an error. Short or empty series resolve to
// zero-valued metrics, and every division, logarithm and square root is
// guarded where it happens.
//
// The pNN50 threshold, the sample entropy template length and the DFA window
// range are fixed constants; the regression fixtures depend on them.
package hrv
