// Package probe queries finished media artifacts for duration and resolution
// via a single ffprobe JSON call. The probe is strictly best-effort: it never
// fails outward. Any internal error degrades to zero duration and the
// system's fixed target resolution.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/docuforge/docuforge-bridge/internal/invoke"
)

// FallbackResolution is the fixed render target, reported when the real
// resolution cannot be determined.
const FallbackResolution = "1920x1080"

// Metadata describes a probed media file.
type Metadata struct {
	Duration   float64 `json:"duration"`
	Resolution string  `json:"resolution"`
}

// fallback is the zero-valued default returned on any probe failure.
func fallback() Metadata {
	return Metadata{Duration: 0, Resolution: FallbackResolution}
}

// Prober wraps ffprobe invocations.
type Prober struct {
	runner      *invoke.Runner
	ffprobePath string
	timeout     time.Duration
	logger      *slog.Logger
}

func New(runner *invoke.Runner, ffprobePath string, timeout time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		runner:      runner,
		ffprobePath: ffprobePath,
		timeout:     timeout,
		logger:      logger,
	}
}

// Probe returns duration and resolution for the media file at path.
// Failures are absorbed: a warning is logged and defaults are returned.
func (p *Prober) Probe(ctx context.Context, path string) Metadata {
	out := p.runner.Run(ctx, p.timeout, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	if !out.IsSuccess() {
		p.logger.Warn("probe failed, using default metadata",
			"path", path,
			"status", out.Status.String(),
		)
		return fallback()
	}

	md, err := ParseJSON([]byte(out.Stdout))
	if err != nil {
		p.logger.Warn("probe output unparseable, using default metadata",
			"path", path,
			"error", err,
		)
		return fallback()
	}
	return md
}

// ParseJSON converts raw ffprobe JSON output into Metadata.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (Metadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return fallback(), fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	md := fallback()

	if d, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
		md.Duration = d
	}

	for _, s := range raw.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			md.Resolution = fmt.Sprintf("%dx%d", s.Width, s.Height)
			break
		}
	}

	return md, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}
