package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/docuforge/docuforge-bridge/internal/config"
	"github.com/docuforge/docuforge-bridge/internal/invoke"
	"github.com/docuforge/docuforge-bridge/internal/logging"
	"github.com/docuforge/docuforge-bridge/internal/probe"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <media-file>",
		Short: "Print duration and resolution of a media file as JSON",
		Long: "Probes the file with ffprobe and prints {duration, resolution}. Probing never\n" +
			"fails: unreadable files report duration 0 and the default 1920x1080 resolution.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbeOnce(args[0])
		},
	}
}

func runProbeOnce(path string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return failStage(err)
	}

	logger := logging.NewStderrLogger(cfg.LogLevel)
	runner := invoke.NewRunner(logger)
	prober := probe.New(runner, cfg.FFprobePath, cfg.TimeoutProbe(), logger)

	md := prober.Probe(context.Background(), path)
	return printJSON(os.Stdout, md)
}
