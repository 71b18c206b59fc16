// Package api exposes the pipeline stages over HTTP. The dispatcher is
// synchronous: each request runs its stage to completion and returns the
// stage's result or a mapped error.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docuforge/docuforge-bridge/internal/assembly"
	"github.com/docuforge/docuforge-bridge/internal/config"
	"github.com/docuforge/docuforge-bridge/internal/history"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/stages"
)

// RankService scores candidate clips against their scene text.
type RankService interface {
	Rank(ctx context.Context, req stages.RankRequest) ([]stages.RankVideo, error)
}

// VoiceoverService renders a project's narration track.
type VoiceoverService interface {
	Synthesize(ctx context.Context, req stages.VoiceoverRequest) (*assembly.VoiceoverArtifact, error)
}

// AssembleService renders a project's final video.
type AssembleService interface {
	Assemble(ctx context.Context, req assembly.AssemblyRequest) (*assembly.AssemblyResult, error)
}

// RouterConfig carries the stage services and shared infrastructure the
// router wires into handlers.
type RouterConfig struct {
	Ranker      RankService
	Synthesizer VoiceoverService
	Assembler   AssembleService
	Repo        history.Repository
	Logger      *slog.Logger
	StartTime   time.Time
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", handleHealth(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repo, cfg.Logger))

		r.Post("/rank", handleRank(cfg))
		r.Post("/voiceover", handleVoiceover(cfg))
		r.Post("/assemble", handleAssemble(cfg))

		r.Get("/jobs", handleListJobs(cfg))
		r.Get("/jobs/{id}", handleGetJob(cfg))
	})

	return r
}

func handleHealth(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Message: "DocuForge Bridge is running",
			Version: config.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func handleRank(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stages.RankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid rank request: %v", err), "BAD_REQUEST")
			return
		}

		ranked, err := runStage(r.Context(), cfg, history.StageRank, "", func(ctx context.Context) ([]stages.RankVideo, error) {
			return cfg.Ranker.Rank(ctx, req)
		})
		if err != nil {
			writeStageError(w, "rank", err)
			return
		}

		WriteJSON(w, http.StatusOK, ranked)
	}
}

func handleVoiceover(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stages.VoiceoverRequest
		if err := decodeStrict(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid voiceover request: %v", err), "BAD_REQUEST")
			return
		}
		if req.ProjectID == "" {
			WriteError(w, http.StatusBadRequest, "projectId is required", "BAD_REQUEST")
			return
		}

		artifact, err := runStage(r.Context(), cfg, history.StageVoiceover, req.ProjectID, func(ctx context.Context) (*assembly.VoiceoverArtifact, error) {
			return cfg.Synthesizer.Synthesize(ctx, req)
		})
		if err != nil {
			writeStageError(w, "voiceover", err)
			return
		}

		WriteJSON(w, http.StatusOK, artifact)
	}
}

func handleAssemble(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assembly.AssemblyRequest
		if err := decodeStrict(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid assembly request: %v", err), "BAD_REQUEST")
			return
		}
		if req.ProjectID == "" {
			WriteError(w, http.StatusBadRequest, "projectId is required", "BAD_REQUEST")
			return
		}

		result, err := runStage(r.Context(), cfg, history.StageAssemble, req.ProjectID, func(ctx context.Context) (*assembly.AssemblyResult, error) {
			return cfg.Assembler.Assemble(ctx, req)
		})
		if err != nil {
			writeStageError(w, "assemble", err)
			return
		}

		WriteJSON(w, http.StatusOK, result)
	}
}

func handleListJobs(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repo.ListJobs(r.Context(), 50)
		if err != nil {
			cfg.Logger.Error("failed to list jobs", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
		for _, j := range jobs {
			resp.Jobs = append(resp.Jobs, JobToResponse(j))
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func handleGetJob(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, err := cfg.Repo.GetJob(r.Context(), id)
		if err != nil {
			cfg.Logger.Error("failed to get job", "id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to get job", "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

// runStage records the dispatch in the history store around the stage call.
// History failures are logged and swallowed; they never fail the stage.
func runStage[T any](ctx context.Context, cfg RouterConfig, stage, projectID string, fn func(ctx context.Context) (T, error)) (T, error) {
	job := history.NewJob(projectID, stage)
	if err := cfg.Repo.CreateJob(ctx, job); err != nil {
		cfg.Logger.Warn("failed to record stage job", "stage", stage, "error", err)
	}

	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	status := history.StatusCompleted
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		status = history.StatusFailed
		var timeout *invoke.ToolTimeout
		if errors.As(err, &timeout) {
			status = history.StatusTimeout
		}
	}
	if ferr := cfg.Repo.FinishJob(ctx, job.ID, status, errMsg, elapsed); ferr != nil {
		cfg.Logger.Warn("failed to finish stage job", "stage", stage, "error", ferr)
	}

	return result, err
}

// writeStageError maps the stage error taxonomy onto HTTP statuses: invalid
// input is the caller's fault, tool timeouts and tool failures are distinct
// gateway errors, a disabled stage is unavailable, everything else is
// internal.
func writeStageError(w http.ResponseWriter, stage string, err error) {
	var (
		timeout *invoke.ToolTimeout
		failure *invoke.ToolFailure
	)

	switch {
	case errors.Is(err, assembly.ErrNoScenes),
		errors.Is(err, assembly.ErrNoClipsFound),
		errors.Is(err, stages.ErrNoScenes),
		errors.Is(err, stages.ErrNoVideos):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, stages.ErrRankerNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "STAGE_UNAVAILABLE")
	case errors.As(err, &timeout):
		WriteError(w, http.StatusGatewayTimeout, fmt.Sprintf("%s stage timed out: %v", stage, err), "STAGE_TIMEOUT")
	case errors.As(err, &failure):
		WriteJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:  fmt.Sprintf("%s stage failed: %v", stage, err),
			Code:   "STAGE_FAILED",
			Stderr: failure.Stderr,
		})
	default:
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("%s stage error: %v", stage, err), "INTERNAL_ERROR")
	}
}

func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
