// Package http implements the HTTP handlers of the web front end. Handlers
// parse the upload, delegate to the analysis service and render JSON, PNG,
// XLSX or HTML. Errors are rendered as RFC 7807 problem details through
// errors.ErrorHandler, except on the HTML pages which show them inline.
//
// # Routes
//
//	GET  /                            upload page
//	POST /analyze                     HTML results page
//	POST /api/analysis                JSON summary with metadata and preview
//	POST /api/analysis/results        two-key analysis document
//	POST /api/analysis/charts/{chart} PNG chart
//	POST /api/analysis/workbook       XLSX download
//	GET  /api/health[/ready|/live]    health checks
//	GET  /api/version                 build information
//
// Uploads are accepted as multipart/form-data with the CSV in the "file"
// field, or as a raw text/csv body.
package http
