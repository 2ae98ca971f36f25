// clean.go implements the "hone clean" command for pruning finished sessions.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old finished sessions",
	Long: `Remove finished sessions from the session store. Suspended and
in-progress sessions are never removed.

By default, removes sessions older than the configured max_age_days (default 30).
Use --keep to keep only the N most recent finished sessions instead.
Use --dry-run to preview what would be removed.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var (
	keepFlag       int
	maxAgeDaysFlag int
	dryRunFlag     bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N finished sessions (0 = use age-based cleanup)")
	cleanCmd.Flags().IntVar(&maxAgeDaysFlag, "max-age-days", 0, "Remove finished sessions older than N days (0 = use config)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var pruned []string

	if keepFlag > 0 {
		pruned, err = a.orch.PruneKeepRecent(ctx, keepFlag, dryRunFlag)
	} else {
		maxAge := maxAgeDaysFlag
		if maxAge <= 0 {
			maxAge = a.cfg.Cleanup.MaxAgeDays
		}
		if maxAge <= 0 {
			maxAge = 30
		}
		pruned, err = a.orch.Prune(ctx, maxAge, dryRunFlag)
	}

	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if len(pruned) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}

	for _, id := range pruned {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", verb, id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d session(s).\n", verb, len(pruned))

	return nil
}
