package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/output"
	"github.com/dshills/prchanges/internal/patch"
	"github.com/dshills/prchanges/internal/redact"
)

var (
	flagCommit   string
	flagPatch    bool
	flagWordDiff bool
	flagNoColor  bool
	flagNoRedact bool
)

var changesCmd = &cobra.Command{
	Use:   "changes <pr-number|range>",
	Short: "Show the changes of a pull request commit by commit",
	Long: "Rebuild the commit graph of a pull request (or, with --local, of a revision range), " +
		"fetch the diff of every commit and of the whole request, and print the selected view.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := buildOverrides()
		if flagPatch {
			overrides["show_patch"] = true
		}
		if flagWordDiff {
			overrides["word_diff"] = true
		}
		if flagNoRedact {
			overrides["redact.secrets"] = false
		}
		s, err := newSession(cmd, overrides)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		defer s.flush()

		ctx := cmd.Context()
		bundle, title, err := s.load(ctx, args[0])
		outcome := changes.Resolve(bundle, err)
		switch outcome.Kind {
		case changes.OutcomeCancelled:
			s.logger.DebugContext(ctx, "interrupted")
			fail(cmd, outcome.Err)
			return nil
		case changes.OutcomeFailed:
			s.logger.DebugContext(ctx, "build failed", "kind", outcome.Failure())
			fail(cmd, outcome.Err)
			return nil
		}

		bundle = outcome.Bundle.Filter(s.cfg.Include, s.cfg.Exclude)
		if s.cfg.Redact.Secrets {
			bundle = bundle.Map(func(ps []patch.FilePatch) []patch.FilePatch {
				return redact.Patches(ps, s.cfg.Redact.Paths)
			})
		} else {
			s.logger.WarnContext(ctx, "secret redaction is disabled")
		}

		view := output.NewView(title, bundle)
		if err := view.Selection.Apply(flagCommit); err != nil {
			fail(cmd, err)
			return nil
		}

		opts := output.Options{
			ShowPatch: s.cfg.ShowPatch,
			WordDiff:  s.cfg.WordDiff,
			Color:     !flagNoColor && flagOut == "" && !color.NoColor,
		}
		if err := render(cmd, view, s.cfg.Format, opts); err != nil {
			fail(cmd, err)
		}
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph <pr-number|range>",
	Short: "Print the commit graph of a pull request in post-order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Graph output has its own formats; the configured bundle format
		// does not apply.
		format := flagFormat
		if format == "" {
			format = "text"
		}
		overrides := buildOverrides()
		delete(overrides, "format")

		s, err := newSession(cmd, overrides)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		defer s.flush()

		bundle, _, err := s.load(cmd.Context(), args[0])
		if err != nil {
			fail(cmd, err)
			return nil
		}
		if err := output.WriteGraph(cmd.OutOrStdout(), bundle, format); err != nil {
			fail(cmd, err)
		}
		return nil
	},
}

// render writes the view to --out, or to the command's stdout.
func render(cmd *cobra.Command, v *output.View, format string, opts output.Options) error {
	if flagOut != "" {
		return output.WriteBundle(v, format, flagOut, opts)
	}
	w, err := output.GetWriter(format, opts)
	if err != nil {
		return err
	}
	return w.Write(cmd.OutOrStdout(), v)
}

func init() {
	addRequestFlags(changesCmd)
	changesCmd.Flags().StringVar(&flagCommit, "commit", "", "Select one commit by position (1..N) or ID; 0 or \"all\" selects the whole request")
	changesCmd.Flags().BoolVar(&flagPatch, "patch", false, "Print patch bodies")
	changesCmd.Flags().BoolVar(&flagWordDiff, "word-diff", false, "Highlight changed words in patch bodies")
	changesCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	changesCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction in patch bodies (use with caution)")

	addRequestFlags(graphCmd)
}
