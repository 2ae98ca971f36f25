// report.go implements the "hone report" command for session summaries.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/berth-dev/hone/internal/config"
	hlog "github.com/berth-dev/hone/internal/log"
	honereport "github.com/berth-dev/hone/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Show a summary of a session",
	Long: `Display a markdown summary of a session: outcome, score, counters,
every refinement and the initial and final prompt. With --write the
report is also saved to .hone/reports/<id>.md.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var writeFlag bool

func init() {
	reportCmd.Flags().BoolVar(&writeFlag, "write", false, "Also write the report to .hone/reports/")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.orch.GetState(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	// The event log is optional; a report without it just lacks duration.
	var events []hlog.LogEvent
	if logger, err := hlog.NewLogger(a.root); err == nil {
		if list, err := logger.ForSession(snap.State.ID); err == nil {
			events = list
		} else {
			a.logger.Warn("reading event log", "error", err)
		}
	}

	r := honereport.Generate(snap.State, events)
	fmt.Fprint(cmd.OutOrStdout(), honereport.FormatReport(r))

	if writeFlag {
		path, err := honereport.WriteReport(filepath.Join(a.root, config.Dir, "reports"), r)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", path)
	}
	return nil
}
