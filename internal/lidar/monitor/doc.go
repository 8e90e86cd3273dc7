// Package monitor renders diagnostics for a ground detection run: per
// footprint waveform plots and an along-track ground profile chart.
package monitor
