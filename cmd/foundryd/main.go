package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Danish137/cerina-protocol-foundry/internal/config"
	"github.com/Danish137/cerina-protocol-foundry/internal/engine"
	"github.com/Danish137/cerina-protocol-foundry/internal/generator"
	"github.com/Danish137/cerina-protocol-foundry/internal/httpapi"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Load configuration (foundry.yml optional, env overrides applied)
	var cfg *config.Config
	if path := os.Getenv("FOUNDRY_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	// 2. Parse Redis URL and create blackboard client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid redis URL: %v\n", err)
		os.Exit(1)
	}

	bbClient, err := blackboard.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create blackboard client: %v\n", err)
		os.Exit(1)
	}
	defer bbClient.Close()

	// 3. Verify Redis connectivity
	ctx := context.Background()
	if err := bbClient.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible: %v\n", err)
		os.Exit(1)
	}

	// 4. Select the generator backend
	var gen generator.Generator
	switch cfg.Generator.Backend {
	case "openai":
		gen, err = generator.NewOpenAIGenerator(cfg.Generator.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		gen = generator.NewOfflineGenerator()
	}

	// 5. Create the workflow engine
	eng := engine.New(bbClient, gen, cfg.Workflow)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 6. Resume sessions a previous process left running
	resumed, err := eng.ResumeInFlight(runCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to resume in-flight sessions: %v\n", err)
		os.Exit(1)
	}
	logger.Info("foundryd starting",
		"instance", cfg.Instance,
		"listen", cfg.Listen,
		"generator", cfg.Generator.Backend,
		"resumed_sessions", resumed)

	// 7. Serve the session control API
	server := &http.Server{
		Addr:        cfg.Listen,
		Handler:     httpapi.NewServer(runCtx, eng, bbClient, logger),
		ReadTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// 8. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Shutdown failed: %v\n", err)
			os.Exit(1)
		}
	case serveErr := <-errCh:
		if serveErr != nil {
			fmt.Fprintf(os.Stderr, "Error: Server error: %v\n", serveErr)
			os.Exit(1)
		}
	}

	logger.Info("foundryd stopped")
}
