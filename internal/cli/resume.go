// resume.go implements the "hone answer" command which resumes a
// suspended session with the caller's choice or feedback.
package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berth-dev/hone/internal/loop"
)

var answerCmd = &cobra.Command{
	Use:   "answer <id>",
	Short: "Answer a suspended session and continue it",
	Long: `Answer the pending question of a suspended session.

needs-detail sessions take --feedback. needs-choice sessions take --choice,
either an option number or the option text (or your own text when the
policy allows it), plus optional --feedback.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnswer,
}

var (
	choiceFlag   string
	feedbackFlag string
)

func init() {
	answerCmd.Flags().StringVar(&choiceFlag, "choice", "", "Option number or text")
	answerCmd.Flags().StringVar(&feedbackFlag, "feedback", "", "Free-text detail")
	answerCmd.Flags().BoolVar(&noAdvanceFlag, "no-advance", false, "Apply the answer without rewriting yet")
	answerCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the session as JSON")
}

func runAnswer(cmd *cobra.Command, args []string) error {
	a, err := setup(setupOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	id := args[0]

	snap, err := a.orch.GetState(ctx, id)
	if err != nil {
		return err
	}
	patch := loop.Patch{
		Choice:   resolveOptionNumber(snap.State, choiceFlag),
		Feedback: feedbackFlag,
	}

	if noAdvanceFlag {
		_, err = a.orch.Resume(ctx, id, patch)
	} else {
		_, err = a.orch.Answer(ctx, id, patch)
	}
	if err != nil {
		return err
	}

	snap, err = a.orch.GetState(ctx, id)
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), snap)
	}
	printState(cmd.OutOrStdout(), snap.State)
	return nil
}

// resolveOptionNumber maps "2" to the second offered option. Anything else
// is returned unchanged.
func resolveOptionNumber(st *loop.State, choice string) string {
	choice = strings.TrimSpace(choice)
	n, err := strconv.Atoi(choice)
	if err != nil || st.Mode != loop.ModeNeedsChoice || n < 1 || n > len(st.Options) {
		return choice
	}
	return st.Options[n-1]
}
