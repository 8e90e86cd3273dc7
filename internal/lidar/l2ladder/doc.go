// Package l2ladder owns Layer 2 (Ladder) of the waveform data model.
//
// Responsibilities: expanding each footprint's (top, bottom, bin count)
// triple into a per-bin elevation ladder and fixing the set-wide vertical
// resolution used by every later layer.
//
// Dependency rule: L2 may depend on L1 (Records) but never on L3+.
package l2ladder
