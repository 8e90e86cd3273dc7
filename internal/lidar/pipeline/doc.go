// Package pipeline provides orchestration for the waveform ground pipeline.
//
// It chains the layer stages (L1 Records through L5 Ground) into a single
// run over one waveform source and hands the result to L6 (Raster) through
// a caller-supplied projection. The pipeline does not own domain logic; it
// delegates to layer packages.
//
// This package is the composition root: it imports from the layer packages
// but none of them import pipeline/.
package pipeline
