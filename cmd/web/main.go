// Command web serves the upload page and the analysis API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"stocklens/internal/app"
	"stocklens/internal/config"
	"stocklens/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	envPath := flag.String("env", "", "dotenv file loaded before the environment is read")
	port := flag.Int("port", 0, "listen port (overrides configuration)")
	flag.Parse()

	if err := run(*configPath, *envPath, *port); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath, envPath string, port int) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envPath, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	application, err := app.NewApplication(cfg, logger, providers)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(context.Background())
}
