package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/docuforge/docuforge-bridge/internal/assembly"
	"github.com/docuforge/docuforge-bridge/internal/config"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/logging"
	"github.com/docuforge/docuforge-bridge/internal/probe"
)

// stageError is the JSON document written to stderr when a one-shot stage
// fails. Exit code 1 always accompanies it.
type stageError struct {
	Error  string `json:"error"`
	Stderr string `json:"stderr,omitempty"`
}

func newAssembleCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "assemble [request.json]",
		Short: "Run the assemble stage once and print the result as JSON",
		Long: "Reads an assembly request (projectId, scenes, optional voiceover) from the given\n" +
			"file, --input, or stdin; renders the final video; prints the result to stdout.\n" +
			"Exits 0 with a result document on success, 1 with an error document on stderr.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := inputPath
			if len(args) == 1 {
				path = args[0]
			}
			return runAssembleOnce(path)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the assembly request JSON (default: stdin)")
	return cmd
}

func runAssembleOnce(inputPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return failStage(fmt.Errorf("load config: %w", err))
	}

	data, err := readInput(inputPath)
	if err != nil {
		return failStage(err)
	}

	var req assembly.AssemblyRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return failStage(fmt.Errorf("invalid assembly request: %w", err))
	}
	if req.ProjectID == "" {
		return failStage(errors.New("projectId is required"))
	}

	// One-shot runs log to stderr so stdout stays pure JSON.
	logger := logging.NewStderrLogger(cfg.LogLevel)

	ws := assembly.NewWorkspace(cfg.WorkdirRoot)
	runner := invoke.NewRunner(logger)
	prober := probe.New(runner, cfg.FFprobePath, cfg.TimeoutProbe(), logger)
	planner := assembly.NewPlanner(ws, cfg.LUTPath, logger)
	assembler := assembly.NewAssembler(planner, ws, runner, prober, cfg.FFmpegPath, cfg.TimeoutAssemble(), logger)

	result, err := assembler.Assemble(context.Background(), req)
	if err != nil {
		return failStage(err)
	}

	return printJSON(os.Stdout, result)
}

// failStage writes the error document to stderr and returns a sentinel that
// makes main exit 1 without further printing.
func failStage(err error) error {
	doc := stageError{Error: err.Error()}
	var failure *invoke.ToolFailure
	if errors.As(err, &failure) {
		doc.Stderr = failure.Stderr
	}
	printJSON(os.Stderr, doc)
	return &reportedError{err: err}
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
