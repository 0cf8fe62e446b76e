package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vet-pain-mcp-server/internal/catalog"
	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/logging"
	"github.com/vet-pain-mcp-server/internal/service"
	"github.com/vet-pain-mcp-server/internal/setup"
)

// app holds the services shared by the subcommands. It is built lazily so
// `setup` and `help` never load the catalog.
type app struct {
	catalogDir string
	logLevel   string
	jsonOutput bool

	logger  *logrus.Logger
	catalog *catalog.Catalog
}

func (a *app) init() error {
	if a.catalog != nil {
		return nil
	}

	logger, err := logging.New(domain.LoggingConfig{Level: a.logLevel, Format: "text", Output: "stderr"})
	if err != nil {
		return err
	}
	a.logger = logger

	a.catalog, err = catalog.LoadDir(logger, a.catalogDir)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	return nil
}

func (a *app) assessments() (*service.AssessmentService, error) {
	return service.NewAssessmentService(a.logger, a.catalog, service.NewInterpretationEngine(a.logger), 1)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand(in io.Reader) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "vetpain",
		Short: "Veterinary pain assessment and analgesic dosing from the command line",
		Long: `vetpain scores validated canine and feline pain scales, calculates analgesic
doses for a chosen presentation and plans constant rate infusions.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&a.catalogDir, "catalog-dir", "", "directory with scales.yaml, drugs.yaml and cri.yaml (embedded data when empty)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")
	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(newScalesCommand(a))
	cmd.AddCommand(newScoreCommand(a))
	cmd.AddCommand(newDoseCommand(a))
	cmd.AddCommand(newCRICommand(a))
	cmd.AddCommand(setup.NewCommand(in))

	return cmd
}
