// Package config provides centralized configuration management for stocklens.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// Command-line flags in cmd/analyzer override the loaded values afterwards.
//
// # Environment Variables
//
// All environment variables follow the pattern STOCKLENS_<SECTION>_<FIELD>:
//
//	STOCKLENS_ANALYSIS_INPUT_PATH=data/stock_data.csv
//	STOCKLENS_ANALYSIS_VARIANT=batch
//	STOCKLENS_ANALYSIS_DATE_LAYOUTS=2006-01-02|02/01/2006
//	STOCKLENS_SERVER_PORT=8080
//	STOCKLENS_LOGGING_LEVEL=debug
//
// Date layouts are "|" separated because Go layouts may contain commas.
//
// # YAML
//
//	analysis:
//	  input_path: stock_data.csv
//	  moving_average_window: 7
//	  top_n: 10
//	output:
//	  charts_dir: out/charts
//	  workbook_path: out/analysis.xlsx
package config
