// Package assembly plans and executes final video renders: it turns an
// ordered set of scene clips plus an optional voiceover track into a
// deterministic ffmpeg invocation (inputs, filter graph, output parameters)
// and delegates execution to the external encoder.
package assembly

import "errors"

// Sentinel errors for invalid assembly input. Both reject the request before
// any external process is launched.
var (
	// ErrNoScenes means the request carried an empty scene list.
	ErrNoScenes = errors.New("no scenes to assemble")
	// ErrNoClipsFound means no referenced clip file exists on disk.
	ErrNoClipsFound = errors.New("no video clips found to assemble")
)

// SceneClip is one scene's selected video source. Produced by the upstream
// clip-selection stage, consumed once by the planner, never mutated.
type SceneClip struct {
	SceneID int `json:"sceneId"`
	// ClipPath is the clip's filesystem location. When empty, the planner
	// derives the conventional per-scene path inside the project workdir.
	ClipPath string `json:"clipPath,omitempty"`
	// SceneText is used upstream for ranking; assembly ignores it.
	SceneText string `json:"sceneText,omitempty"`
}

// Voiceover status values.
const (
	VoiceoverGenerated   = "generated"
	VoiceoverMockSilence = "mock_silence"
	VoiceoverFailedAll   = "failed_all"
)

// VoiceoverArtifact is the optional narration audio produced by the
// voiceover stage.
type VoiceoverArtifact struct {
	ProjectID string  `json:"projectId,omitempty"`
	Path      string  `json:"voiceoverPath,omitempty"`
	Duration  float64 `json:"duration"`
	Status    string  `json:"status"`
}

// Declared reports whether the artifact names a usable track. A failed_all
// artifact is treated as "no voiceover", not as an error.
func (v *VoiceoverArtifact) Declared() bool {
	return v != nil && v.Status != VoiceoverFailedAll && v.Path != ""
}

// AssemblyRequest is the unit of work for the assemble stage.
type AssemblyRequest struct {
	ProjectID string             `json:"projectId"`
	Scenes    []SceneClip        `json:"scenes"`
	Voiceover *VoiceoverArtifact `json:"voiceover,omitempty"`
}

// StatusCompleted marks a successful assembly run.
const StatusCompleted = "completed"

// AssemblyResult is the assemble stage's output contract. Created once per
// successful run and immutable after creation.
type AssemblyResult struct {
	ProjectID    string  `json:"projectId"`
	OutputPath   string  `json:"outputPath"`
	Duration     float64 `json:"duration"`
	Resolution   string  `json:"resolution"`
	FileSize     int64   `json:"fileSize"`
	ClipCount    int     `json:"clipCount"`
	HasVoiceover bool    `json:"hasVoiceover"`
	Status       string  `json:"status"`
}

// Strategy selects between the two render graph shapes.
type Strategy int

const (
	// StrategySingleClip renders one scaled clip, optionally mixed with the
	// voiceover.
	StrategySingleClip Strategy = iota
	// StrategyMultiClip scales every clip identically and concatenates them
	// in request order.
	StrategyMultiClip
)

// RenderPlan is a fully specified encoder invocation: input list, filter
// graph, stream maps and output path. Inputs 0..ClipCount-1 are clips in
// request order; input ClipCount, when HasVoiceover is set, is the voiceover
// track. The filter graph is built against exactly that ordering.
type RenderPlan struct {
	ProjectID string
	Strategy  Strategy

	// Inputs in declaration order: clips first, voiceover last if present.
	Inputs       []string
	ClipCount    int
	HasVoiceover bool

	// VideoFilter is the -vf chain for the single-clip strategy.
	VideoFilter string
	// FilterComplex is the -filter_complex graph: the audio mix for a
	// single clip with voiceover, or the full scale/concat/mix graph for
	// multiple clips.
	FilterComplex string
	// MapVideo and MapAudio name the output streams of FilterComplex
	// (multi-clip strategy only).
	MapVideo string
	MapAudio string

	OutputPath string
	// ConcatListPath is the line-oriented list of source clips written next
	// to the output, enumerating inputs in plan order.
	ConcatListPath string

	// SkippedScenes lists scene IDs whose clip file was missing. Skips are
	// surfaced for observability; they are not part of ClipCount.
	SkippedScenes []int
}
