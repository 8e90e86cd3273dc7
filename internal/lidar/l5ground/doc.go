// Package l5ground owns Layer 5 (Ground) of the waveform data model.
//
// Responsibilities: the energy-weighted centroid of each denoised waveform
// as the footprint's ground elevation, with an explicit missing marker for
// footprints that have no energy left after denoising.
//
// Dependency rule: L5 may depend on L1-L4 but never on L6.
package l5ground
