// Package dynamics provides the gain-computation building blocks for the
// bus compressor and true-peak limiter engines: soft-knee and limiter
// curve gain computers, the asymmetric attack/release envelope follower,
// and the variance-driven adaptive release estimator.
//
// Everything in this package is per-sample, allocation-free and
// single-threaded; the engine package owns orchestration and threading.
package dynamics
