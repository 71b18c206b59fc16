package assembly

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/probe"
)

// CommandRunner executes an external command under a timeout.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) invoke.Outcome
}

// MetadataProber enriches results with media metadata. Implementations never
// fail; they degrade to default metadata.
type MetadataProber interface {
	Probe(ctx context.Context, path string) probe.Metadata
}

// Assembler runs the complete assemble stage: plan, write the source list,
// invoke the encoder, enrich the result.
type Assembler struct {
	planner    *Planner
	ws         Workspace
	runner     CommandRunner
	prober     MetadataProber
	ffmpegPath string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewAssembler(planner *Planner, ws Workspace, runner CommandRunner, prober MetadataProber, ffmpegPath string, timeout time.Duration, logger *slog.Logger) *Assembler {
	return &Assembler{
		planner:    planner,
		ws:         ws,
		runner:     runner,
		prober:     prober,
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
		logger:     logger,
	}
}

// Assemble renders the final video for a request. Invalid input fails before
// any external process is launched. A failed or timed-out encode returns an
// error and leaves any partially written output in place for inspection.
func (a *Assembler) Assemble(ctx context.Context, req AssemblyRequest) (*AssemblyResult, error) {
	if _, err := a.ws.EnsureProjectDir(req.ProjectID); err != nil {
		return nil, err
	}

	plan, err := a.planner.Plan(req)
	if err != nil {
		return nil, err
	}

	concatPath, err := a.ws.WriteConcatList(req.ProjectID, plan.Inputs[:plan.ClipCount])
	if err != nil {
		return nil, err
	}
	plan.ConcatListPath = concatPath

	a.logger.Info("assembling video",
		"project_id", req.ProjectID,
		"clip_count", plan.ClipCount,
		"has_voiceover", plan.HasVoiceover,
		"skipped_scenes", len(plan.SkippedScenes),
	)

	args := BuildArgs(plan)
	outcome := a.runner.Run(ctx, a.timeout, a.ffmpegPath, args...)
	if err := outcome.AsError("ffmpeg"); err != nil {
		return nil, err
	}

	md := a.prober.Probe(ctx, plan.OutputPath)

	var fileSize int64
	if fi, err := os.Stat(plan.OutputPath); err == nil {
		fileSize = fi.Size()
	}

	result := &AssemblyResult{
		ProjectID:    req.ProjectID,
		OutputPath:   plan.OutputPath,
		Duration:     md.Duration,
		Resolution:   md.Resolution,
		FileSize:     fileSize,
		ClipCount:    plan.ClipCount,
		HasVoiceover: plan.HasVoiceover,
		Status:       StatusCompleted,
	}

	a.logger.Info("assembly complete",
		"project_id", req.ProjectID,
		"output", result.OutputPath,
		"duration_s", result.Duration,
		"file_size", result.FileSize,
	)

	return result, nil
}
