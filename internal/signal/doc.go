// Package signal holds the value types shared by every stage of the beat
// analysis pipeline: a sampled waveform, the beat events detected on it, and
// the RR intervals derived from those events.
//
// Values are created by the stage that produces them and owned by the caller.
// Nothing in this package keeps references to its inputs.
package signal
