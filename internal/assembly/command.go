package assembly

// Fixed output parameters: H.264 at a constrained quality factor, AAC at a
// fixed bitrate and sample rate, and a streaming-optimized container layout.
// These are not configurable; every render is encoded identically.
var outputArgs = []string{
	"-c:v", "libx264", "-preset", "medium", "-crf", "23",
	"-c:a", "aac", "-b:a", "192k", "-ar", "44100",
	"-movflags", "+faststart",
}

// BuildArgs constructs the complete ffmpeg argument slice for a plan. The
// command follows a fixed skeleton: inputs in declaration order, the filter
// graph, stream maps (multi-clip only), then the shared output parameters.
func BuildArgs(plan *RenderPlan) []string {
	args := make([]string, 0, 2*len(plan.Inputs)+24)

	args = append(args, "-y")

	for _, input := range plan.Inputs {
		args = append(args, "-i", input)
	}

	switch plan.Strategy {
	case StrategySingleClip:
		args = append(args, "-vf", plan.VideoFilter)
		if plan.FilterComplex != "" {
			args = append(args, "-filter_complex", plan.FilterComplex)
		}

	case StrategyMultiClip:
		args = append(args, "-filter_complex", plan.FilterComplex)
		args = append(args, "-map", plan.MapVideo, "-map", plan.MapAudio)
	}

	args = append(args, outputArgs...)
	args = append(args, plan.OutputPath)

	return args
}
