// list.go implements "hone list" and "hone delete".
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/berth-dev/hone/internal/session"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print summaries as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	states, err := a.orch.List(cmd.Context())
	if err != nil {
		return err
	}

	summaries := make([]session.Summary, 0, len(states))
	for _, st := range states {
		summaries = append(summaries, session.Summarize(st))
	}

	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions. Start one with: hone run \"<prompt>\"")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHASE\tSCORE\tCOUNT\tUPDATED\tPROMPT")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			s.ID, s.Phase, s.Score, s.Counter, s.Cap,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"), truncate(s.Prompt, 50))
	}
	return tw.Flush()
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
