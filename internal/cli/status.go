// status.go implements the "hone status" command showing one session.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	hlog "github.com/berth-dev/hone/internal/log"
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show a session's score, progress and history",
	Long: `Display a session: its phase, score out of 100, the capped counter,
the current prompt, the pending question and every refinement so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var eventsFlag bool

func init() {
	statusCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the session as JSON")
	statusCmd.Flags().BoolVar(&eventsFlag, "events", false, "Also print the session's event log")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.orch.GetState(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), snap)
	}

	printState(cmd.OutOrStdout(), snap.State)
	printHistory(cmd.OutOrStdout(), snap.State)

	if eventsFlag {
		events, err := hlog.NewLogger(a.root)
		if err != nil {
			return err
		}
		list, err := events.ForSession(snap.State.ID)
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nEvents:")
		for _, e := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-17s  %s\n", e.Time.Local().Format("15:04:05"), e.Event, eventDetail(e))
		}
	}
	return nil
}

func eventDetail(e hlog.LogEvent) string {
	switch {
	case e.Error != "":
		return fmt.Sprintf("%s: %s", e.Reason, e.Error)
	case e.Mode != "":
		return fmt.Sprintf("score %d, %s", e.Score, e.Mode)
	case e.Phase != "":
		return e.Phase
	default:
		return ""
	}
}
