package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/client"
	"github.com/dgallion1/bddgen/internal/config"
	"github.com/dgallion1/bddgen/internal/pipeline"
)

// options are the persistent flags shared by every command.
type options struct {
	cfg     config.Config
	service string
	timeout time.Duration
	verbose bool
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{cfg: cfg}

	root := &cobra.Command{
		Use:   "bddgen",
		Short: "Turn requirements documents into Gherkin features and step definitions",
		Long: `bddgen talks to the conversion service to classify a requirements document
(BRD, FRD, User Story or Test Case), convert it into a Gherkin feature, and
generate step-definition stubs for a language and BDD framework.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c := opts.cfg
			c.ServiceURL = opts.service
			if err := c.Validate(); err != nil {
				return fmt.Errorf("%w: %v", bdd.ErrValidation, err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.service, "service", cfg.ServiceURL, "conversion service base URL (env BDDGEN_SERVICE_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", cfg.RequestTimeout, "timeout for each service request")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newFeatureCmd(opts),
		newStepsCmd(opts),
		newConvertCmd(opts),
	)
	return root
}

// session builds an orchestrator backed by the conversion service. Logs
// go to the command's stderr.
func (o *options) session(cmd *cobra.Command) *pipeline.Orchestrator {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	c := client.NewClient(o.service, o.timeout, log)
	return pipeline.NewOrchestrator(c, c, c, log)
}

func readDocument(path string) (bdd.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bdd.Document{}, fmt.Errorf("read document: %w", err)
	}
	return bdd.NewDocument(filepath.Base(path), data), nil
}

// readFeature reads feature text from path, or from stdin when path is "-".
func readFeature(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read feature: %w", err)
	}
	return string(data), nil
}

// writeOutput writes content to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
