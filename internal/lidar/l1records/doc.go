// Package l1records owns Layer 1 (Records) of the waveform data model.
//
// Responsibilities: reading footprint records from a waveform container,
// bounding-box selection on footprint midpoints, and producing the immutable
// FootprintSet consumed by L2 (Ladder). Coordinates are always read before
// any per-bin array so an empty selection exits before the heavy read.
//
// Dependency rule: L1 has no inward dependencies on higher layers.
package l1records
