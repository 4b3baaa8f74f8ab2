package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"stocklens/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version   contracts.VersionInfo
	startTime time.Time
	logger    *slog.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// CheckFunc reports whether a dependency is ready
type CheckFunc func(ctx context.Context) error

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service reporting the build's version
func NewHealthService(logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	hs := &HealthService{
		version:   contracts.GetVersionInfo(),
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
		checks:    make(map[string]CheckFunc),
	}
	hs.RegisterCheck("scratch", TempDirCheck)

	hs.logger.Info("HealthService initialized", slog.String("version", hs.version.Version))
	return hs
}

// RegisterCheck adds or replaces a named readiness check
func (hs *HealthService) RegisterCheck(name string, check CheckFunc) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.checks[name] = check
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version.Version,
	}
}

// ReadinessCheck runs every registered check
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	hs.mu.RLock()
	names := make([]string, 0, len(hs.checks))
	for name := range hs.checks {
		names = append(names, name)
	}
	hs.mu.RUnlock()
	sort.Strings(names)

	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version.Version,
		Services:  make(map[string]ServiceHealth, len(names)),
	}

	for _, name := range names {
		hs.mu.RLock()
		check := hs.checks[name]
		hs.mu.RUnlock()

		if err := check(ctx); err != nil {
			status.Status = "not_ready"
			status.Services[name] = ServiceHealth{Status: "not_ready", Message: err.Error()}
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("error", err.Error()))
			continue
		}
		status.Services[name] = ServiceHealth{Status: "ready"}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":      hs.version.Version,
		"build_time":   hs.version.BuildTime,
		"git_commit":   hs.version.GitCommit,
		"go_version":   hs.version.GoVersion,
		"os":           hs.version.OS,
		"arch":         hs.version.Architecture,
		"data_format":  hs.version.DataFormat,
		"api_version":  hs.version.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

// TempDirCheck verifies the temporary directory accepts writes. Large
// multipart uploads are spooled there.
func TempDirCheck(ctx context.Context) error {
	f, err := os.CreateTemp("", "stocklens-ready-*")
	if err != nil {
		return fmt.Errorf("temp dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
