// start.go implements the non-interactive "hone start" and "hone advance"
// commands for scripts and other tools.
package cli

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <prompt>",
	Short: "Create a session and run it to its first question",
	Long: `Create a session and judge the prompt. Prints the session ID and the
pending question or guidance; answer it with "hone answer".

With --no-advance the session is only stored; run "hone advance" later.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

var advanceCmd = &cobra.Command{
	Use:   "advance <id>",
	Short: "Run a session until it needs input or finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdvance,
}

var noAdvanceFlag bool

func init() {
	startCmd.Flags().StringVar(&policyFlag, "policy", "", "Policy: single-threshold or two-tier")
	startCmd.Flags().BoolVar(&noAdvanceFlag, "no-advance", false, "Only create the session")
	startCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the session as JSON")
	advanceCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the session as JSON")
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{policy: policyFlag, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	autoPrune(ctx, a)

	id, err := a.orch.Create(ctx, args[0])
	if err != nil {
		return err
	}
	if !noAdvanceFlag {
		if _, err := a.orch.Advance(ctx, id); err != nil {
			return err
		}
	}
	snap, err := a.orch.GetState(ctx, id)
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), snap)
	}
	printState(cmd.OutOrStdout(), snap.State)
	return nil
}

func runAdvance(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.orch.Advance(ctx, args[0]); err != nil {
		return err
	}
	snap, err := a.orch.GetState(ctx, args[0])
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), snap)
	}
	printState(cmd.OutOrStdout(), snap.State)
	return nil
}
