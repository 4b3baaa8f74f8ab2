// Package dataprocessing holds the analysis core for stock-price tables:
// cleaning, feature derivation, aggregation and the JSON summary.
//
// # Data Flow
//
//	ingest.ReadCSV → Clean → DeriveFeatures → {GroupStats, MonthlyAggregates, Describe,
//	                                           CorrelationMatrix, ReturnDistribution}
//
// Clean and DeriveFeatures mutate the table in place. Everything after them
// only reads it.
//
// # Missing Values
//
// Numeric results that are undefined (a return over Open = 0, a moving
// average over a short window, the spread of a single-row group) are NaN.
// The domain.Float type carries NaN through JSON as the string "NaN".
//
// # Errors
//
// Aggregations that need a column the table lacks fail with an error
// matching errors.ErrMissingColumn. Feature derivation never fails for a
// missing column; the feature is skipped and reported.
package dataprocessing
