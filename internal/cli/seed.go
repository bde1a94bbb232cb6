package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/til/internal/fact"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File string
}

// seedResult is the seed command's JSON payload.
type seedResult struct {
	Inserted int `json:"inserted"`
	Total    int `json:"total"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load starter facts into the database",
		Long: `Insert facts with their ids and counters. Ids already present are skipped,
so seeding twice is harmless. Without --file the built-in facts are used.

Requires the sqlite or mysql driver.

Examples:
  til seed --db ./til.db
  til seed --file ./facts.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "YAML list of facts (defaults to the built-in seeds)")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	facts := fact.DefaultSeeds()
	if opts.File != "" {
		loaded, err := fact.LoadSeeds(opts.File)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load seed file", err)
		}
		facts = loaded
	}

	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	s, ok := e.backend.Remote.(seeder)
	if !ok {
		return e.formatter.Fail(ExitCommandError, ErrCodeBackend,
			fmt.Sprintf("the %s driver cannot seed", e.backend.Driver), nil)
	}

	n, err := s.Seed(commandContext(cmd), facts)
	if err != nil {
		return e.formatter.Fail(ExitFailure, ErrCodeRemote, "failed to seed facts", err)
	}
	e.logger.Debug("seeded facts", "inserted", n, "total", len(facts))

	if e.formatter.JSON() {
		return e.formatter.Success(seedResult{Inserted: n, Total: len(facts)})
	}
	return e.formatter.Success(fmt.Sprintf("✓ Seeded %d of %d fact(s)", n, len(facts)))
}
