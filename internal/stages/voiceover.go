package stages

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/docuforge/docuforge-bridge/internal/assembly"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
)

// ErrNoScenes means the voiceover request carried no scene text.
var ErrNoScenes = errors.New("no scenes provided")

// mockSilenceSeconds is the length of the silent fallback track.
const mockSilenceSeconds = "10"

// SceneText is one scene's narration text.
type SceneText struct {
	SceneID   int    `json:"sceneId,omitempty"`
	SceneText string `json:"sceneText"`
}

// VoiceoverRequest is the voiceover stage's input contract.
type VoiceoverRequest struct {
	ProjectID string      `json:"projectId"`
	Scenes    []SceneText `json:"scenes"`
}

// SynthStrategy is one entry in the ordered synthesis fallback chain. Status
// is the artifact status recorded when this strategy succeeds.
type SynthStrategy struct {
	Name   string
	Status string
	Run    func(ctx context.Context, text, outPath string) invoke.Outcome
}

// Synthesizer renders narration audio by trying an ordered list of
// strategies; the first success wins. Exhausting every strategy yields a
// failed_all artifact recorded in the result, never an error.
type Synthesizer struct {
	ws         assembly.Workspace
	strategies []SynthStrategy
	logger     *slog.Logger
}

// NewSynthesizer builds the production fallback chain: the external TTS tool
// first, then an ffmpeg-rendered silent track so downstream assembly can
// proceed without narration audio.
func NewSynthesizer(ws assembly.Workspace, runner CommandRunner, ttsPath, ffmpegPath string, timeout time.Duration, logger *slog.Logger) *Synthesizer {
	strategies := []SynthStrategy{
		{
			Name:   "tts",
			Status: assembly.VoiceoverGenerated,
			Run: func(ctx context.Context, text, outPath string) invoke.Outcome {
				return runner.Run(ctx, timeout, ttsPath,
					"--text", text,
					"--out_path", outPath,
					"--model_name", "tts_models/en/ljspeech/vits",
				)
			},
		},
		{
			Name:   "silence",
			Status: assembly.VoiceoverMockSilence,
			Run: func(ctx context.Context, text, outPath string) invoke.Outcome {
				return runner.Run(ctx, timeout, ffmpegPath,
					"-y", "-f", "lavfi",
					"-i", "anullsrc=r=44100:cl=mono",
					"-t", mockSilenceSeconds,
					outPath,
				)
			},
		},
	}
	return &Synthesizer{ws: ws, strategies: strategies, logger: logger}
}

// NewSynthesizerWithStrategies wires an explicit chain; used by tests and by
// deployments that disable the TTS tool.
func NewSynthesizerWithStrategies(ws assembly.Workspace, strategies []SynthStrategy, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{ws: ws, strategies: strategies, logger: logger}
}

// Synthesize renders the project's narration track from the concatenated
// scene texts.
func (s *Synthesizer) Synthesize(ctx context.Context, req VoiceoverRequest) (*assembly.VoiceoverArtifact, error) {
	if len(req.Scenes) == 0 {
		return nil, ErrNoScenes
	}

	if _, err := s.ws.EnsureProjectDir(req.ProjectID); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(req.Scenes))
	for _, scene := range req.Scenes {
		texts = append(texts, scene.SceneText)
	}
	fullText := strings.Join(texts, " ")
	outPath := s.ws.VoiceoverPath(req.ProjectID)

	for _, strat := range s.strategies {
		outcome := strat.Run(ctx, fullText, outPath)
		if outcome.IsSuccess() {
			s.logger.Info("voiceover synthesized",
				"project_id", req.ProjectID,
				"strategy", strat.Name,
				"status", strat.Status,
				"duration_ms", outcome.Duration.Milliseconds(),
			)
			return &assembly.VoiceoverArtifact{
				ProjectID: req.ProjectID,
				Path:      outPath,
				Status:    strat.Status,
			}, nil
		}
		s.logger.Warn("voiceover strategy failed, trying next",
			"project_id", req.ProjectID,
			"strategy", strat.Name,
			"outcome", outcome.Status.String(),
		)
	}

	// Exhaustion is a terminal status in the artifact, not an error: the
	// assemble stage treats failed_all as "no voiceover".
	s.logger.Error("all voiceover strategies failed", "project_id", req.ProjectID)
	return &assembly.VoiceoverArtifact{
		ProjectID: req.ProjectID,
		Status:    assembly.VoiceoverFailedAll,
	}, nil
}
