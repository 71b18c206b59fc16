package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docuforge/docuforge-bridge/internal/assembly"
	"github.com/docuforge/docuforge-bridge/internal/config"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/logging"
	"github.com/docuforge/docuforge-bridge/internal/stages"
)

func newRankCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "rank [request.json]",
		Short: "Run the rank stage once and print the annotated videos as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := inputPath
			if len(args) == 1 {
				path = args[0]
			}
			return runRankOnce(path)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the rank request JSON (default: stdin)")
	return cmd
}

func runRankOnce(inputPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return failStage(fmt.Errorf("load config: %w", err))
	}

	data, err := readInput(inputPath)
	if err != nil {
		return failStage(err)
	}

	var req stages.RankRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return failStage(fmt.Errorf("invalid rank request: %w", err))
	}

	logger := logging.NewStderrLogger(cfg.LogLevel)
	runner := invoke.NewRunner(logger)
	ranker := stages.NewRanker(runner, strings.Fields(cfg.RankerCommand), cfg.TimeoutRank(), logger)

	ranked, err := ranker.Rank(context.Background(), req)
	if err != nil {
		return failStage(err)
	}

	return printJSON(os.Stdout, ranked)
}

func newVoiceoverCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "voiceover [request.json]",
		Short: "Run the voiceover stage once and print the artifact as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := inputPath
			if len(args) == 1 {
				path = args[0]
			}
			return runVoiceoverOnce(path)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the voiceover request JSON (default: stdin)")
	return cmd
}

func runVoiceoverOnce(inputPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return failStage(fmt.Errorf("load config: %w", err))
	}

	data, err := readInput(inputPath)
	if err != nil {
		return failStage(err)
	}

	var req stages.VoiceoverRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return failStage(fmt.Errorf("invalid voiceover request: %w", err))
	}
	if req.ProjectID == "" {
		return failStage(errors.New("projectId is required"))
	}

	logger := logging.NewStderrLogger(cfg.LogLevel)
	ws := assembly.NewWorkspace(cfg.WorkdirRoot)
	runner := invoke.NewRunner(logger)
	synth := stages.NewSynthesizer(ws, runner, cfg.TTSPath, cfg.FFmpegPath, cfg.TimeoutVoiceover(), logger)

	artifact, err := synth.Synthesize(context.Background(), req)
	if err != nil {
		return failStage(err)
	}

	return printJSON(os.Stdout, artifact)
}
