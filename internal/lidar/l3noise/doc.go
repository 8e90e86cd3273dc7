// Package l3noise owns Layer 3 (Noise) of the waveform data model.
//
// Responsibilities: estimating each footprint's background mean and
// standard deviation from the leading window of its raw waveform. The window
// is assumed to sit above any surface return, which holds for bare earth and
// not for canopy.
//
// Dependency rule: L3 may depend on L1-L2 but never on L4+.
package l3noise
