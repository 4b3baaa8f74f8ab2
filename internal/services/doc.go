// Package services implements the application layer shared by the command
// line analyzer and the web front end.
//
// # Available Services
//
//	- AnalysisService: runs uploaded CSVs through the pipeline and renders
//	  charts, summaries and workbooks from the result
//	- ArtifactService: writes the batch run's charts, CSV exports and
//	  workbook to the configured output locations
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return internal/errors kinds unchanged so handlers can map them
// onto problem details. Chart lookups add ErrUnknownChart and surface
// charts.ErrNoData when a chart has nothing to draw.
package services
