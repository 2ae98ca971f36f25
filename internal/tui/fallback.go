package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/berth-dev/hone/internal/loop"
)

// errQuit is returned by the readers when the user types q or input ends.
var errQuit = errors.New("quit")

// LineRunner drives a session over plain line-based I/O for non-TTY use.
type LineRunner struct {
	driver    Driver
	reader    *bufio.Reader
	out       io.Writer
	offerChat bool
}

// NewLineRunner creates a LineRunner reading answers from in.
func NewLineRunner(d Driver, in io.Reader, out io.Writer, offerChat bool) *LineRunner {
	return &LineRunner{
		driver:    d,
		reader:    bufio.NewReader(in),
		out:       out,
		offerChat: offerChat,
	}
}

// Run advances st until it finishes or the user quits while suspended.
// The returned bool is true when the user quit; the session stays
// suspended and can be resumed later.
func (r *LineRunner) Run(ctx context.Context, st *loop.State) (*loop.State, bool, error) {
	for {
		switch st.Phase {
		case loop.PhaseJudging, loop.PhaseRefining:
			if st.Phase == loop.PhaseRefining {
				fmt.Fprintln(r.out, "Rewriting the prompt...")
			} else {
				fmt.Fprintln(r.out, "Judging the prompt...")
			}
			next, err := r.driver.Advance(ctx, st.ID)
			if err != nil {
				return st, false, err
			}
			st = next

		case loop.PhaseSuspended:
			r.printStatus(st)
			patch, err := r.ask(st)
			if errors.Is(err, errQuit) {
				return st, true, nil
			}
			if err != nil {
				return st, false, err
			}
			next, err := r.driver.Answer(ctx, st.ID, patch)
			if errors.Is(err, loop.ErrInvalidPatch) {
				fmt.Fprintf(r.out, "  %v\n", err)
				continue
			}
			if err != nil {
				return st, false, err
			}
			st = next

		case loop.PhaseDone:
			r.printStatus(st)
			fmt.Fprintf(r.out, "\nFinal prompt (%s):\n%s\n", Outcome(st), st.CurrentPrompt)
			if !r.offerChat || st.ChatResponse != "" {
				return st, false, nil
			}
			if !r.confirm("Run this prompt now? [y/N] ") {
				return st, false, nil
			}
			next, err := r.driver.Chat(ctx, st.ID)
			if err != nil {
				return st, false, err
			}
			fmt.Fprintf(r.out, "\n%s\n", next.ChatResponse)
			return next, false, nil

		default:
			return st, false, fmt.Errorf("session %s has unknown phase %q", st.ID, st.Phase)
		}
	}
}

func (r *LineRunner) printStatus(st *loop.State) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, StatusLine(st))
	if st.LastError != "" {
		fmt.Fprintf(r.out, "Provider error: %s\n", st.LastError)
	}
}

func (r *LineRunner) ask(st *loop.State) (loop.Patch, error) {
	if st.Mode == loop.ModeNeedsChoice {
		return r.askChoice(st)
	}
	return r.askDetail(st)
}

// askDetail shows guidance and reads feedback until a non-empty line arrives.
func (r *LineRunner) askDetail(st *loop.State) (loop.Patch, error) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, st.Guidance)
	for {
		line, err := r.readLine("  detail (q to quit) > ")
		if err != nil {
			return loop.Patch{}, err
		}
		if line != "" {
			return loop.Patch{Feedback: line}, nil
		}
		fmt.Fprintln(r.out, "  Feedback is required.")
	}
}

// askChoice shows the question with numbered options. A number picks an
// option; free text is taken as a custom answer when the policy allows it.
func (r *LineRunner) askChoice(st *loop.State) (loop.Patch, error) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, st.Question)
	for i, opt := range st.Options {
		fmt.Fprintf(r.out, "  [%d] %s\n", i+1, opt)
	}
	if st.Policy.AllowCustomChoice {
		fmt.Fprintln(r.out, "  Or type your own answer.")
	}

	var choice string
	for choice == "" {
		line, err := r.readLine("  > ")
		if err != nil {
			return loop.Patch{}, err
		}
		choice = resolveChoice(st, line)
		if choice == "" && line != "" {
			fmt.Fprintf(r.out, "  Pick a number from 1 to %d.\n", len(st.Options))
		}
	}

	feedback, err := r.readLine("  anything else? (enter to skip) > ")
	if err != nil && !errors.Is(err, errQuit) {
		return loop.Patch{}, err
	}
	return loop.Patch{Choice: choice, Feedback: feedback}, nil
}

// resolveChoice maps a typed line to a choice, or "" when it is not one.
func resolveChoice(st *loop.State, line string) string {
	if num, ok := parseOptionNumber(line); ok {
		if num >= 1 && num <= len(st.Options) {
			return st.Options[num-1]
		}
		return ""
	}
	if st.Policy.AllowCustomChoice {
		return line
	}
	for _, opt := range st.Options {
		if strings.EqualFold(opt, line) {
			return opt
		}
	}
	return ""
}

func (r *LineRunner) confirm(question string) bool {
	line, err := r.readLine(question)
	if err != nil {
		return false
	}
	return strings.EqualFold(line, "y") || strings.EqualFold(line, "yes")
}

// readLine prints prompt and returns the trimmed line. A lone q or the end
// of input yields errQuit.
func (r *LineRunner) readLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errQuit
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "q" {
		return "", errQuit
	}
	return line, nil
}

// parseOptionNumber attempts to parse s as a positive integer. Returns the
// number and true on success, or 0 and false otherwise.
func parseOptionNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int(ch-'0')
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}
