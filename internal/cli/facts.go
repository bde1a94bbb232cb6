package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/til/internal/category"
	"github.com/roach88/til/internal/fact"
	"github.com/roach88/til/internal/session"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Category string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List facts, most interesting first",
		Long: `List up to 600 facts ordered by their 👍 count.

Without --category the configured default category is shown.

Examples:
  til list
  til list --category technology
  til list --remote http://localhost:8080 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category to show (all for every fact)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	s := e.newSession(cmd)
	cat, err := load(commandContext(cmd), e, s, opts.Category)
	if err != nil {
		return err
	}

	facts := s.Facts.Snapshot()
	if e.formatter.JSON() {
		return e.formatter.Success(facts)
	}
	renderFacts(e.formatter.Writer, cat, facts)
	return nil
}

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Text     string
	Source   string
	Category string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Share a new fact",
		Long: `Validate and share a new fact.

Text must be 1 to 200 characters and the source an absolute http(s) URL.
Nothing is sent when validation fails.

Example:
  til submit --text "Octopuses have three hearts" \
    --source https://example.com/octopus --category science`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Text, "text", "", "fact text (required)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "trustworthy source URL (required)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category (required)")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	s := e.newSession(cmd)
	s.Submitter.SetDraft(session.Form{Text: opts.Text, Source: opts.Source, Category: opts.Category})
	e.formatter.VerboseLog("%d character(s) remaining", s.Submitter.Remaining())

	created, err := s.Submitter.Submit(commandContext(cmd))
	if err != nil {
		return sessionFailure(e.formatter, "failed to share fact", err)
	}

	if e.formatter.JSON() {
		return e.formatter.Success(created)
	}
	fmt.Fprintf(e.formatter.Writer, "✓ Shared fact %s\n", created.ID)
	renderFact(e.formatter.Writer, created)
	return nil
}

// VoteOptions holds flags for the vote command.
type VoteOptions struct {
	*RootOptions
	Category string
}

// NewVoteCommand creates the vote command.
func NewVoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VoteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vote <id> <interesting|mindblowing|false>",
		Short: "Add one vote to a fact",
		Long: `Load the category, then add one vote to the given counter of a fact.

The fact must be part of the loaded category.

Examples:
  til vote 1 interesting
  til vote 3 false --category society`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVote(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category to load before voting")

	return cmd
}

func runVote(opts *VoteOptions, id, fieldName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	field, err := fact.ParseVoteField(fieldName)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid vote field", err)
	}

	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := commandContext(cmd)
	s := e.newSession(cmd)
	if _, err := load(ctx, e, s, opts.Category); err != nil {
		return err
	}

	updated, err := s.Voter.Vote(ctx, id, field)
	if err != nil {
		return sessionFailure(e.formatter, fmt.Sprintf("failed to vote on fact %s", id), err)
	}

	if e.formatter.JSON() {
		return e.formatter.Success(updated)
	}
	fmt.Fprintf(e.formatter.Writer, "✓ %s %s is now %d\n", field.Emoji(), field, updated.Votes(field))
	renderFact(e.formatter.Writer, updated)
	return nil
}

// load selects cat, or the configured default when cat is empty.
func load(ctx context.Context, e *env, s *session.Session, cat string) (string, error) {
	if cat == "" {
		cat = e.cfg.DefaultCategory
	}
	e.formatter.VerboseLog("Loading %s facts", cat)
	if err := s.Loader.Select(ctx, cat); err != nil {
		return "", sessionFailure(e.formatter, "failed to load facts", err)
	}
	return cat, nil
}

// sessionFailure maps a controller error to output and an exit code.
func sessionFailure(f *OutputFormatter, message string, err error) error {
	var verr *fact.ValidationError
	switch {
	case errors.As(err, &verr):
		return f.Fail(ExitFailure, ErrCodeValidation, message, err)
	case errors.Is(err, session.ErrUnknownCategory):
		return f.Fail(ExitCommandError, ErrCodeNotFound, message, err)
	case errors.Is(err, session.ErrUnknownFact):
		return f.Fail(ExitFailure, ErrCodeNotFound, message, err)
	case errors.Is(err, session.ErrVoteInFlight), errors.Is(err, session.ErrSubmitInFlight):
		return f.Fail(ExitFailure, ErrCodeBusy, message, err)
	default:
		return f.Fail(ExitFailure, ErrCodeRemote, message, err)
	}
}

// renderFacts writes the text listing of a category.
func renderFacts(w io.Writer, cat string, facts []fact.Fact) {
	fmt.Fprintf(w, "%s: %d fact(s)\n", category.Label(cat), len(facts))
	for _, f := range facts {
		fmt.Fprintln(w)
		renderFact(w, f)
	}
}

func renderFact(w io.Writer, f fact.Fact) {
	fmt.Fprintf(w, "[%s] %s\n", f.ID, f.Text)
	fmt.Fprintf(w, "    source: %s\n", f.Source)

	counters := make([]string, 0, len(fact.VoteFields))
	for _, field := range fact.VoteFields {
		counters = append(counters, fmt.Sprintf("%s %d", field.Emoji(), f.Votes(field)))
	}
	fmt.Fprintf(w, "    #%s  %s\n", category.Label(f.Category), strings.Join(counters, "  "))
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
