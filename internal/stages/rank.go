// Package stages implements the dispatcher-facing pipeline stages that wrap
// external tools: relevance ranking and voiceover synthesis. Each stage
// translates a validated request into one or more subprocess invocations and
// normalizes the outcome.
package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docuforge/docuforge-bridge/internal/invoke"
)

var (
	// ErrNoVideos means the rank request carried nothing to score.
	ErrNoVideos = errors.New("no videos to rank")
	// ErrRankerNotConfigured means no ranking command is set; the stage is
	// disabled on this deployment.
	ErrRankerNotConfigured = errors.New("ranker command not configured")
)

// RankVideo is one candidate clip to score against its scene text. The
// ranker annotates it with RelevanceScore (0-100).
type RankVideo struct {
	VideoID        string   `json:"videoId,omitempty"`
	Title          string   `json:"title,omitempty"`
	VideoURL       string   `json:"videoUrl,omitempty"`
	ThumbnailURL   string   `json:"thumbnailUrl"`
	SceneText      string   `json:"sceneText"`
	Duration       float64  `json:"duration,omitempty"`
	RelevanceScore *float64 `json:"relevanceScore,omitempty"`
}

// RankRequest accepts either a single video object or a sequence; a lone
// object is normalized into a one-element sequence. Unknown-shape input is
// rejected at decode time rather than deep inside the stage.
type RankRequest struct {
	Videos []RankVideo
}

func (r *RankRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return errors.New("empty rank request")
	}

	if trimmed[0] == '[' {
		return strictDecode(data, &r.Videos)
	}

	var single RankVideo
	if err := strictDecode(data, &single); err != nil {
		return err
	}
	r.Videos = []RankVideo{single}
	return nil
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// CommandRunner executes an external command under a timeout.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) invoke.Outcome
}

// Ranker shells out to the opaque relevance-scoring tool. The tool's
// contract: request JSON as the final argument, annotated JSON on stdout,
// exit 0 on success.
type Ranker struct {
	runner  CommandRunner
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRanker creates a Ranker. command is the tool's command line: binary
// plus fixed leading arguments; nil or empty disables the stage.
func NewRanker(runner CommandRunner, command []string, timeout time.Duration, logger *slog.Logger) *Ranker {
	return &Ranker{runner: runner, command: command, timeout: timeout, logger: logger}
}

// Rank forwards the videos to the ranking tool and returns the annotated
// sequence. The output is always a sequence, even for normalized
// single-object input.
func (r *Ranker) Rank(ctx context.Context, req RankRequest) ([]RankVideo, error) {
	if len(req.Videos) == 0 {
		return nil, ErrNoVideos
	}
	if len(r.command) == 0 {
		return nil, ErrRankerNotConfigured
	}

	payload, err := json.Marshal(req.Videos)
	if err != nil {
		return nil, fmt.Errorf("encode rank input: %w", err)
	}

	args := append(append([]string{}, r.command[1:]...), string(payload))
	outcome := r.runner.Run(ctx, r.timeout, r.command[0], args...)
	if err := outcome.AsError("ranker"); err != nil {
		return nil, err
	}

	var ranked []RankVideo
	if err := json.Unmarshal([]byte(outcome.Stdout), &ranked); err != nil {
		return nil, fmt.Errorf("parse ranker output: %w", err)
	}

	r.logger.Info("rank stage complete",
		"videos", len(ranked),
		"duration_ms", outcome.Duration.Milliseconds(),
	)

	return ranked, nil
}
