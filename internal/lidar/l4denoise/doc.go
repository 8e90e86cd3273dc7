// Package l4denoise owns Layer 4 (Denoise) of the waveform data model.
//
// Responsibilities: noise-floor subtraction, sigma thresholding, removal of
// isolated surviving bins (declutter) and Gaussian smoothing of each
// footprint's waveform. Every operation is per footprint and pure; the only
// shared input is the set-wide resolution from L2.
//
// Dependency rule: L4 may depend on L1-L3 but never on L5+.
package l4denoise
