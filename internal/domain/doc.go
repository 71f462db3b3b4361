// Package domain models gridded Arctic sea-ice data and the operations used
// to merge heterogeneous sources onto one common grid.
//
// # Data Sources
//
// Six upstream products feed the merge pipeline, each on its own native grid
// and in its own native format:
//
//	Satellite altimetry    monthly NetCDF files on a 25 km polar
//	                       stereographic grid (ice type, thickness, snow
//	                       depth, freeboard, thickness uncertainty, snow
//	                       density, ice density)
//	Passive microwave      monthly NetCDF concentration files on the same
//	                       25 km grid (fraction, 0-1)
//	Region mask            static flat-binary mask of 17 region codes with
//	                       int32 coordinate files scaled by 1e-5
//	Reanalysis             single NetCDF file with regular 1-D lat/lon axes
//	                       and time counted in hours since 1900-01-01
//	Model thickness        per-year flat-binary records (12 months of
//	                       little-endian float32) plus a text grid file
//	Ice motion             single NetCDF file with east/north drift vectors
//
// # Grid Conventions
//
// All fields are time-major, row-major arrays of shape time x X x Y. After
// regridding, every field shares the altimetry product's grid, whose cells
// carry curvilinear latitude/longitude coordinates. Spatial alignment happens
// in the NSIDC polar stereographic north projection (EPSG:3411); the
// longitude/latitude to planar x/y transform is applied identically to every
// source so the resampled fields are commensurable.
//
// # Missing Data
//
// NaN marks a missing value. Gap filling replaces a NaN cell by its nearest
// valid neighbor only when the cell is outside the protected regions (Land
// and the central Arctic Ocean) and the local sea-ice concentration exceeds
// 15%. Ice thickness is special-cased: concentration at or below 15% means
// open water, so thickness is forced to exactly zero rather than treated as
// unknown. Filled values live in a separate "<name>_filled" field; the raw
// field is never modified.
//
// # Provenance
//
// Every field carries ordered attributes (units, long_name, source citations)
// copied from its originating dataset. Derived fields record how they were
// produced in a "note" attribute. The merged dataset is stamped with a
// description and a creation date taken from the package clock, which tests
// freeze via [SetClock].
package domain
