package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// OutputPaths holds the resolved artifact destinations of a batch run.
// Empty fields mean the artifact is not written.
type OutputPaths struct {
	ChartsDir    string
	WorkbookPath string
	CSVDir       string
}

// ResolveOutputPaths makes every configured output path absolute relative to base.
func (o OutputConfig) ResolveOutputPaths(base string) OutputPaths {
	return OutputPaths{
		ChartsDir:    resolve(base, o.ChartsDir),
		WorkbookPath: resolve(base, o.WorkbookPath),
		CSVDir:       resolve(base, o.CSVDir),
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates all required directories if they don't exist
func (p OutputPaths) EnsureDirectories() error {
	directories := []string{p.ChartsDir, p.CSVDir}
	if p.WorkbookPath != "" {
		directories = append(directories, filepath.Dir(p.WorkbookPath))
	}

	logger := slog.Default()
	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// Any reports whether at least one artifact is configured
func (p OutputPaths) Any() bool {
	return p.ChartsDir != "" || p.WorkbookPath != "" || p.CSVDir != ""
}
