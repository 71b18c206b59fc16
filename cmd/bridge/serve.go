package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docuforge/docuforge-bridge/internal/api"
	"github.com/docuforge/docuforge-bridge/internal/assembly"
	"github.com/docuforge/docuforge-bridge/internal/config"
	"github.com/docuforge/docuforge-bridge/internal/db"
	"github.com/docuforge/docuforge-bridge/internal/history"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/logging"
	"github.com/docuforge/docuforge-bridge/internal/probe"
	"github.com/docuforge/docuforge-bridge/internal/stages"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting docuforge bridge",
		"version", config.Version,
		"port", cfg.Port,
		"workdir", cfg.WorkdirRoot,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	repo := history.NewRepository(database.Conn())
	if err := ensureAuthToken(context.Background(), repo, logger); err != nil {
		return fmt.Errorf("ensure auth token: %w", err)
	}

	ws := assembly.NewWorkspace(cfg.WorkdirRoot)
	runner := invoke.NewRunner(logging.WithComponent(logger, "invoke"))
	prober := probe.New(runner, cfg.FFprobePath, cfg.TimeoutProbe(), logging.WithComponent(logger, "probe"))
	planner := assembly.NewPlanner(ws, cfg.LUTPath, logging.WithComponent(logger, "planner"))
	assembler := assembly.NewAssembler(planner, ws, runner, prober, cfg.FFmpegPath, cfg.TimeoutAssemble(), logging.WithStage(logger, history.StageAssemble))
	ranker := stages.NewRanker(runner, strings.Fields(cfg.RankerCommand), cfg.TimeoutRank(), logging.WithStage(logger, history.StageRank))
	synthesizer := stages.NewSynthesizer(ws, runner, cfg.TTSPath, cfg.FFmpegPath, cfg.TimeoutVoiceover(), logging.WithStage(logger, history.StageVoiceover))

	router := api.NewRouter(api.RouterConfig{
		Ranker:      ranker,
		Synthesizer: synthesizer,
		Assembler:   assembler,
		Repo:        repo,
		Logger:      logging.WithComponent(logger, "api"),
		StartTime:   time.Now(),
	})
	server := api.NewServer(cfg.Port, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("bridge stopped")
	return nil
}

// ensureAuthToken generates and stores the API token on first run. The token
// is printed once so the orchestrator can be configured against it.
func ensureAuthToken(ctx context.Context, repo history.Repository, logger *slog.Logger) error {
	token, err := repo.GetConfig(ctx, "auth_token")
	if err != nil {
		return err
	}
	if token != "" {
		logger.Info("auth token loaded", "token", logging.SanitizeToken(token))
		return nil
	}

	token = uuid.NewString()
	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return err
	}

	logger.Info("generated new auth token")
	fmt.Printf("API token (save this, it is shown once): %s\n", token)
	return nil
}
