// Package server is the composition root: it builds the event bus, job
// store, runner, agents, and HTTP surface, then runs until signalled.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/agents"
	"github.com/Sepheus7/dataforge-studio/internal/api"
	"github.com/Sepheus7/dataforge-studio/internal/config"
	"github.com/Sepheus7/dataforge-studio/internal/core/artifacts"
	"github.com/Sepheus7/dataforge-studio/internal/core/event"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
	"github.com/Sepheus7/dataforge-studio/internal/core/runner"
	"github.com/Sepheus7/dataforge-studio/internal/generate"
	"github.com/Sepheus7/dataforge-studio/internal/llm"
	"github.com/Sepheus7/dataforge-studio/internal/memory"
)

func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	if cfg.Auth.APIKey == "" {
		log.Warn().Msg("no API key configured, authentication is disabled")
	}

	bus := event.NewBus()
	store := job.NewStore(bus)
	taskRunner := runner.New(store, cfg.Limits.MaxConcurrentJobs)

	bedrock, err := llm.NewBedrock(ctx, llm.BedrockOptions{
		Region:      cfg.LLM.Region,
		ModelID:     cfg.LLM.ModelID,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("bedrock client: %w", err)
	}

	generator := generate.NewGenerator(cfg.Artifacts.Dir, cfg.Limits.MaxRowsPerTable, store)
	schemaAgent := agents.NewSchemaAgent(bedrock, store)
	documentAgent := agents.NewDocumentAgent(bedrock, store, cfg.Artifacts.Dir)
	replicationAgent := agents.NewReplicationAgent(bedrock, store, cfg.Artifacts.DatasetsDir)

	reconciler := artifacts.NewReconciler(cfg.Artifacts.Dir, store)
	reconciler.Reconcile()

	mem, err := memory.Open(cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("open memory log: %w", err)
	}
	defer mem.Close()

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		APIKey:           cfg.Auth.APIKey,
		Bus:              bus,
		Store:            store,
		Runner:           taskRunner,
		SchemaAgent:      schemaAgent,
		DocumentAgent:    documentAgent,
		ReplicationAgent: replicationAgent,
		Generator:        generator,
		Reconciler:       reconciler,
		LLM:              bedrock,
		Memory:           mem,
		DatasetsDir:      cfg.Artifacts.DatasetsDir,
		JobMaxAge:        cfg.Limits.JobMaxAgeDuration(),
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("server started")

	// Periodic cleanup of old terminal jobs.
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go cleanupLoop(cleanupCtx, store, cfg.Limits.JobMaxAgeDuration(), cfg.Limits.CleanupIntervalDuration())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	cleanupCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}

	taskRunner.Wait()
	log.Info().Msg("shutdown complete")
	return nil
}

func cleanupLoop(ctx context.Context, store *job.Store, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Cleanup(maxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up old jobs")
			}
		}
	}
}
