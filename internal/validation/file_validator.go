package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stocklens/internal/config"
	apperrors "stocklens/internal/errors"
)

// csvExtensions are the input extensions accepted without a warning
var csvExtensions = map[string]bool{".csv": true, ".txt": true, ".tsv": true}

// FileValidator runs the filesystem checks of a batch run before any
// analysis work starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputFile checks that path names a readable regular file. A
// missing file is reported as not found; an unexpected extension only warns.
func (v *FileValidator) ValidateInputFile(path string) error {
	if path == "" {
		return apperrors.NewAppValidationError("no input file configured")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Input file does not exist", slog.String("file", path))
		return apperrors.NewNotFoundError("input file", err).WithContext("path", path)
	}
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat %s", path), err)
	}
	if info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Input file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	if ext := strings.ToLower(filepath.Ext(path)); !csvExtensions[ext] {
		v.logger.Warn("Input file does not look like CSV",
			slog.String("file", path),
			slog.String("extension", ext))
	}

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists or can be created, and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateOutputs creates and probes every configured artifact location
func (v *FileValidator) ValidateOutputs(paths config.OutputPaths) error {
	if err := paths.EnsureDirectories(); err != nil {
		return apperrors.NewStorageError("failed to create output directories", err)
	}

	dirs := []string{paths.ChartsDir, paths.CSVDir}
	if paths.WorkbookPath != "" {
		dirs = append(dirs, filepath.Dir(paths.WorkbookPath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := v.ValidateOutputDirectory(dir); err != nil {
			return err
		}
	}
	return nil
}
