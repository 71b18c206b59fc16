package assembly

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Render target constants. The planner always normalizes clips to a fixed
// 1920x1080 canvas: aspect-preserving downscale plus centered
// letterbox/pillarbox padding.
const (
	scalePadFilter = "scale=1920:1080:force_original_aspect_ratio=decrease," +
		"pad=1920:1080:(ow-iw)/2:(oh-ih)/2"

	// Audio mix weights. The clip's own audio is a bed under the narration:
	// attenuated to 0.3 for a single clip, 0.2 for a concatenated sequence,
	// while the voiceover always carries full weight. Mixing pads the
	// shorter track with silence instead of truncating the longer one.
	singleClipBedVolume = "0.3"
	multiClipBedVolume  = "0.2"
	voiceoverVolume     = "1.0"
)

// Planner deterministically constructs render plans. Identical input always
// yields an identical plan.
type Planner struct {
	ws      Workspace
	lutPath string
	logger  *slog.Logger
}

// NewPlanner creates a Planner. lutPath names the optional color-grading
// lookup table; when the file is absent, grading is silently skipped.
func NewPlanner(ws Workspace, lutPath string, logger *slog.Logger) *Planner {
	return &Planner{ws: ws, lutPath: lutPath, logger: logger}
}

// Plan validates the request, resolves clip files, selects the render
// strategy and builds the complete filter graph.
//
// Missing clip files are skipped with a warning; the request only fails when
// the scene list is empty (ErrNoScenes) or no clip resolves at all
// (ErrNoClipsFound). A voiceover whose file is missing, or whose synthesis
// exhausted every fallback, is treated as "no voiceover", not as an error.
func (p *Planner) Plan(req AssemblyRequest) (*RenderPlan, error) {
	if len(req.Scenes) == 0 {
		return nil, ErrNoScenes
	}

	plan := &RenderPlan{
		ProjectID:  req.ProjectID,
		OutputPath: p.ws.OutputPath(req.ProjectID),
	}

	for _, scene := range req.Scenes {
		clipPath := scene.ClipPath
		if clipPath == "" {
			clipPath = p.ws.ClipPath(req.ProjectID, scene.SceneID)
		}
		if _, err := os.Stat(clipPath); err != nil {
			p.logger.Warn("missing clip for scene, skipping",
				"project_id", req.ProjectID,
				"scene_id", scene.SceneID,
				"clip_path", clipPath,
			)
			plan.SkippedScenes = append(plan.SkippedScenes, scene.SceneID)
			continue
		}
		plan.Inputs = append(plan.Inputs, clipPath)
	}

	plan.ClipCount = len(plan.Inputs)
	if plan.ClipCount == 0 {
		return nil, ErrNoClipsFound
	}

	if req.Voiceover.Declared() {
		if _, err := os.Stat(req.Voiceover.Path); err == nil {
			plan.HasVoiceover = true
			plan.Inputs = append(plan.Inputs, req.Voiceover.Path)
		} else {
			p.logger.Warn("voiceover file missing, assembling without narration",
				"project_id", req.ProjectID,
				"voiceover_path", req.Voiceover.Path,
			)
		}
	}

	if plan.ClipCount == 1 {
		plan.Strategy = StrategySingleClip
		p.planSingleClip(plan)
	} else {
		plan.Strategy = StrategyMultiClip
		p.planMultiClip(plan)
	}

	return plan, nil
}

// videoTransform returns the per-clip video filter chain: scale/pad, plus
// the grading LUT when its file is present.
func (p *Planner) videoTransform() string {
	vf := scalePadFilter
	if p.lutPath != "" {
		if _, err := os.Stat(p.lutPath); err == nil {
			vf += ",lut3d=" + p.lutPath
		}
	}
	return vf
}

// planSingleClip builds the one-input graph: a plain -vf transform, plus a
// two-branch weighted mix when a voiceover is present.
func (p *Planner) planSingleClip(plan *RenderPlan) {
	plan.VideoFilter = p.videoTransform()

	if plan.HasVoiceover {
		plan.FilterComplex = fmt.Sprintf(
			"[0:a]volume=%s[a1];[1:a]volume=%s[a2];[a1][a2]amix=inputs=2:duration=longest",
			singleClipBedVolume, voiceoverVolume,
		)
	}
}

// planMultiClip builds the N-input graph: every clip scaled identically,
// video and audio streams concatenated in request order, and the
// concatenated audio bed optionally mixed under the voiceover.
//
// Stream indices must exactly match input declaration order: clips are
// inputs 0..N-1, the voiceover (if any) is input N. Ordered concatenation is
// used instead of crossfades; offset-based transitions are unreliable
// without precomputed per-clip durations.
func (p *Planner) planMultiClip(plan *RenderPlan) {
	n := plan.ClipCount
	vf := p.videoTransform()

	graph := make([]string, 0, n+3)

	var videoLabels strings.Builder
	for i := 0; i < n; i++ {
		graph = append(graph, fmt.Sprintf("[%d:v]%s[v%d]", i, vf, i))
		fmt.Fprintf(&videoLabels, "[v%d]", i)
	}
	graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vout]", videoLabels.String(), n))

	var audioLabels strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&audioLabels, "[%d:a]", i)
	}

	if plan.HasVoiceover {
		voiceoverIndex := n
		graph = append(graph,
			fmt.Sprintf("%sconcat=n=%d:v=0:a=1[audioconcat]", audioLabels.String(), n))
		graph = append(graph, fmt.Sprintf(
			"[audioconcat]volume=%s[a1];[%d:a]volume=%s[a2];[a1][a2]amix=inputs=2:duration=longest[aout]",
			multiClipBedVolume, voiceoverIndex, voiceoverVolume,
		))
	} else {
		graph = append(graph,
			fmt.Sprintf("%sconcat=n=%d:v=0:a=1[aout]", audioLabels.String(), n))
	}

	plan.FilterComplex = strings.Join(graph, ";")
	plan.MapVideo = "[vout]"
	plan.MapAudio = "[aout]"
}
