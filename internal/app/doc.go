// Package app wires the web variant of the analyzer: configuration,
// services, HTTP handlers and the server lifecycle.
//
// # Routes
//
//	GET  /                           upload page
//	POST /analyze                    rendered results page
//	POST /api/analysis               JSON summary of an uploaded CSV
//	POST /api/analysis/results       two-key analysis document
//	POST /api/analysis/charts/{name} PNG chart
//	POST /api/analysis/workbook      XLSX workbook
//	GET  /api/health[/ready|/live]   health checks
//	GET  /api/version                build information
//	GET  /metrics                    Prometheus scrape endpoint
//
// # Middleware
//
// Every route except /metrics runs through RequestID, RealIP, OTel,
// StructuredLogger, Recoverer, SecurityHeaders, optional CORS, the rate
// limiter, the upload size limit and the request timeout, in that order.
//
// # Graceful Shutdown
//
// Run serves until SIGINT or SIGTERM. In-flight requests finish within the
// configured shutdown timeout before telemetry providers are flushed.
// Errors are returned to the caller; the package never calls os.Exit.
package app
