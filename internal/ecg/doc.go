// Package ecg turns a raw pulsatile waveform (ECG or similar) into beat events.
//
// The work happens in three stages:
//
//   - Condition: a one-pole high-pass and low-pass pair, a first difference,
//     squaring and a causal moving-window integrator produce a beat-emphasising
//     envelope alongside the band-passed waveform.
//   - Adaptive detection: a single forward pass tracks running signal and noise
//     levels over the envelope, fires when the envelope crosses the adaptive
//     threshold outside the refractory period, and refines each detection to
//     the band-passed maximum in a short search-back window.
//   - Fallback: when the adaptive pass finds fewer than two beats the result is
//     discarded and a moving-average peak picker runs on the raw waveform.
//
// RunPipeline chains detection with RR derivation and time-domain HRV so that
// command-line tools, the API and the report renderer share one entry point.
//
// Every function is a pure transform of its inputs; concurrent calls on
// different buffers need no coordination.
package ecg
