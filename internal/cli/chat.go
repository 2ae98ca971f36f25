// chat.go implements "hone chat", which runs the final prompt of a
// finished session.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <id>",
	Short: "Send a finished session's prompt to the provider",
	Long: `Send the final prompt of a finished session to the provider and print
the response. The response is stored with the session; the prompt is never
changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the session as JSON")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.orch.Chat(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), st)
	}
	fmt.Fprintln(cmd.OutOrStdout(), st.ChatResponse)
	return nil
}
