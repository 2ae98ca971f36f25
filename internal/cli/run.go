// run.go implements the "hone run" command which drives a session
// interactively until it finishes or the user leaves it suspended.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/berth-dev/hone/internal/loop"
	"github.com/berth-dev/hone/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Refine a prompt interactively",
	Long: `Run a refinement session in the terminal. The judge scores the prompt;
when it is not good enough you are asked for detail or to pick an option,
and the prompt is rewritten with your answer.

Press q or esc at a question to leave the session suspended; continue it
later with --session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var (
	sessionFlag string
	chatFlag    bool
	policyFlag  string
	plainFlag   bool
)

func init() {
	runCmd.Flags().StringVar(&sessionFlag, "session", "", "Continue an existing session instead of starting one")
	runCmd.Flags().BoolVar(&chatFlag, "chat", false, "Offer to run the final prompt when the session finishes")
	runCmd.Flags().StringVar(&policyFlag, "policy", "", "Policy for a new session: single-threshold or two-tier")
	runCmd.Flags().BoolVar(&plainFlag, "plain", false, "Use line-based prompts even on a terminal")
}

func runRun(cmd *cobra.Command, args []string) error {
	var prompt string
	if len(args) > 0 {
		prompt = args[0]
	}
	if prompt == "" && sessionFlag == "" {
		return fmt.Errorf("provide a prompt or use --session <id>")
	}
	if prompt != "" && sessionFlag != "" {
		return fmt.Errorf("give either a prompt or --session, not both")
	}

	a, err := setup(setupOptions{policy: policyFlag, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	autoPrune(ctx, a)

	id := sessionFlag
	if id == "" {
		id, err = a.orch.Create(ctx, prompt)
		if err != nil {
			return err
		}
	}
	snap, err := a.orch.GetState(ctx, id)
	if err != nil {
		return err
	}

	var (
		final *loop.State
		quit  bool
	)
	if tui.IsTTY() && !plainFlag {
		m, runErr := tui.Run(tui.NewModel(ctx, a.orch, snap.State, chatFlag))
		if runErr == nil {
			runErr = m.Err()
		}
		if runErr != nil {
			return fmt.Errorf("%w (session %s kept; continue with: hone run --session %s)", runErr, id, id)
		}
		final, quit = m.State(), m.Quit()
		if !quit {
			printState(cmd.OutOrStdout(), final)
		}
	} else {
		final, quit, err = tui.NewLineRunner(a.orch, cmd.InOrStdin(), cmd.OutOrStdout(), chatFlag).Run(ctx, snap.State)
		if err != nil {
			return fmt.Errorf("%w (session %s kept; continue with: hone run --session %s)", err, id, id)
		}
	}

	if quit {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSession %s suspended (%s).\n", final.ID, tui.StatusLine(final))
		fmt.Fprintf(cmd.OutOrStdout(), "Continue with: hone run --session %s\n", final.ID)
	}
	return nil
}

// autoPrune removes finished sessions older than cleanup.max_age_days.
// Failures are reported and otherwise ignored.
func autoPrune(ctx context.Context, a *app) {
	if a.cfg.Cleanup.MaxAgeDays <= 0 {
		return
	}
	pruned, err := a.orch.Prune(ctx, a.cfg.Cleanup.MaxAgeDays, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
	} else if len(pruned) > 0 {
		fmt.Fprintf(os.Stderr, "Cleaned up %d old session(s)\n", len(pruned))
	}
}
