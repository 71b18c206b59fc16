// Command bridge is the DocuForge local media bridge: an HTTP dispatcher for
// the rank, voiceover and assemble pipeline stages, plus one-shot CLI entry
// points for running a stage directly.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docuforge/docuforge-bridge/internal/config"
)

var configPath string

// reportedError marks an error already written to stderr as a JSON document,
// so Execute's fallback printing skips it.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func main() {
	rootCmd := &cobra.Command{
		Use:           "bridge",
		Short:         "DocuForge media bridge",
		Long:          "DocuForge Bridge dispatches documentary pipeline stages (rank, voiceover, assemble) to local media tools.",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", config.Version, config.BuildTime, config.GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRankCmd())
	rootCmd.AddCommand(newVoiceoverCmd())
	rootCmd.AddCommand(newAssembleCmd())
	rootCmd.AddCommand(newProbeCmd())

	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
