// Package l6raster owns Layer 6 (Raster) of the waveform data model.
//
// Responsibilities: binning projected footprint ground elevations onto a
// regular north-up grid for export by a raster codec. Each footprint lands
// in exactly one cell; cells shared by several footprints keep the last
// write and are never averaged. Missing-ground footprints never write.
//
// Dependency rule: L6 is the outermost layer. It takes plain points so it
// stays independent of any coordinate system.
package l6raster
