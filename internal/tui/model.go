package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/berth-dev/hone/internal/loop"
)

// ViewState is what the session view is currently showing.
type ViewState int

const (
	StateWorking ViewState = iota // judging or refining
	StateDetail                   // needs-detail, collecting feedback
	StateChoice                   // needs-choice, picking an option
	StateDone                     // finished, offering chat
	StateChatting                 // chat call in flight
	StateChatDone                 // chat response shown
)

// customLabel is the extra row that opens free-text input.
const customLabel = "Type something..."

// Model drives one session interactively. All orchestrator calls run as
// tea.Cmds so the view stays responsive while the provider works.
type Model struct {
	ctx    context.Context
	driver Driver
	keys   KeyMap

	state     *loop.State
	view      ViewState
	offerChat bool

	selected    int
	typing      bool // custom row is focused and accepting text
	choice      string
	customInput textinput.Model
	detailInput textinput.Model
	spinner     spinner.Model

	notice string // validation message shown under the input
	err    error  // fatal error, ends the program
	quit   bool   // user left while the session was suspended

	width int
}

// NewModel returns a model for st. offerChat enables the final
// "chat with this prompt" step.
func NewModel(ctx context.Context, d Driver, st *loop.State, offerChat bool) Model {
	ci := textinput.New()
	ci.Placeholder = "Type your answer..."
	ci.CharLimit = 500
	ci.Width = maxWidth - 10

	di := textinput.New()
	di.Placeholder = "Add the missing detail..."
	di.CharLimit = 2000
	di.Width = maxWidth - 10

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SelectedStyle

	m := Model{
		ctx:         ctx,
		driver:      d,
		keys:        DefaultKeyMap,
		state:       st,
		offerChat:   offerChat,
		customInput: ci,
		detailInput: di,
		spinner:     sp,
		width:       maxWidth,
	}
	m.view = viewFor(st)
	if m.view == StateDetail {
		m.detailInput.Focus()
	}
	return m
}

// State returns the latest session state.
func (m Model) State() *loop.State { return m.state }

// Quit reports whether the user left while the session was suspended.
func (m Model) Quit() bool { return m.quit }

// Err returns the error that ended the program, if any.
func (m Model) Err() error { return m.err }

// ViewState returns what the model is showing.
func (m Model) ViewState() ViewState { return m.view }

func viewFor(st *loop.State) ViewState {
	switch st.Phase {
	case loop.PhaseSuspended:
		if st.Mode == loop.ModeNeedsChoice {
			return StateChoice
		}
		return StateDetail
	case loop.PhaseDone:
		if st.ChatResponse != "" {
			return StateChatDone
		}
		return StateDone
	default:
		return StateWorking
	}
}

// Init starts the first step when the session still has work to do.
func (m Model) Init() tea.Cmd {
	switch m.view {
	case StateWorking:
		return tea.Batch(m.spinner.Tick, m.advance())
	case StateDetail:
		return textinput.Blink
	default:
		return nil
	}
}

func (m Model) advance() tea.Cmd {
	ctx, d, id := m.ctx, m.driver, m.state.ID
	return func() tea.Msg {
		st, err := d.Advance(ctx, id)
		return stepMsg{state: st, err: err}
	}
}

func (m Model) answer(p loop.Patch) tea.Cmd {
	ctx, d, id := m.ctx, m.driver, m.state.ID
	return func() tea.Msg {
		st, err := d.Answer(ctx, id, p)
		return stepMsg{state: st, err: err}
	}
}

func (m Model) chat() tea.Cmd {
	ctx, d, id := m.ctx, m.driver, m.state.ID
	return func() tea.Msg {
		st, err := d.Chat(ctx, id)
		return chatMsg{state: st, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = min(msg.Width, maxWidth)
		return m, nil

	case spinner.TickMsg:
		if m.view != StateWorking && m.view != StateChatting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepMsg:
		return m.handleStep(msg)

	case chatMsg:
		if msg.err != nil {
			// A failed chat leaves the session untouched; show the error
			// and let the user leave.
			m.notice = msg.err.Error()
			m.view = StateDone
			m.offerChat = false
			return m, nil
		}
		m.state = msg.state
		m.view = StateChatDone
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.CtrlC) {
			if m.state.Suspended() {
				m.quit = true
			}
			return m, tea.Quit
		}
		switch m.view {
		case StateDetail:
			return m.updateDetail(msg)
		case StateChoice:
			return m.updateChoice(msg)
		case StateDone:
			return m.updateDone(msg)
		case StateChatDone:
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleStep(msg stepMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, loop.ErrInvalidPatch) {
			m.notice = msg.err.Error()
			m.view = viewFor(m.state)
			return m, nil
		}
		m.err = msg.err
		return m, tea.Quit
	}

	m.state = msg.state
	m.notice = ""
	m.view = viewFor(m.state)
	m.selected = 0
	m.typing = false
	m.choice = ""
	m.customInput.Reset()
	m.customInput.Blur()
	m.detailInput.Reset()

	switch m.view {
	case StateWorking:
		return m, tea.Batch(m.spinner.Tick, m.advance())
	case StateDetail:
		return m, m.detailInput.Focus()
	case StateDone:
		if !m.offerChat {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.quit = true
		return m, tea.Quit
	case KeyEnter:
		feedback := strings.TrimSpace(m.detailInput.Value())
		if feedback == "" {
			m.notice = "Feedback is required."
			return m, nil
		}
		return m.submit(loop.Patch{Feedback: feedback})
	}
	var cmd tea.Cmd
	m.detailInput, cmd = m.detailInput.Update(msg)
	return m, cmd
}

// rows returns the option labels plus the custom row when allowed.
func (m Model) rows() []string {
	rows := append([]string(nil), m.state.Options...)
	if m.state.Policy.AllowCustomChoice {
		rows = append(rows, customLabel)
	}
	return rows
}

func (m Model) onCustomRow() bool {
	return m.state.Policy.AllowCustomChoice && m.selected == len(m.state.Options)
}

func (m Model) updateChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Once a choice is picked the input collects optional extra feedback.
	if m.choice != "" {
		switch msg.String() {
		case KeyEsc:
			m.choice = ""
			m.customInput.Reset()
			m.customInput.Blur()
			return m, nil
		case KeyEnter:
			return m.submit(loop.Patch{Choice: m.choice, Feedback: m.customInput.Value()})
		}
		var cmd tea.Cmd
		m.customInput, cmd = m.customInput.Update(msg)
		return m, cmd
	}

	if m.typing {
		switch msg.String() {
		case KeyEsc:
			m.typing = false
			m.customInput.Blur()
			return m, nil
		case KeyEnter:
			text := strings.TrimSpace(m.customInput.Value())
			if text == "" {
				m.notice = "Type an answer or press esc."
				return m, nil
			}
			return m.pick(text)
		}
		var cmd tea.Cmd
		m.customInput, cmd = m.customInput.Update(msg)
		return m, cmd
	}

	rows := m.rows()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(rows)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if m.onCustomRow() {
			m.typing = true
			return m, m.customInput.Focus()
		}
		return m.pick(m.state.Options[m.selected])
	}

	// Number quick-select.
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(rows) {
		m.selected = n - 1
		if m.onCustomRow() {
			m.typing = true
			return m, m.customInput.Focus()
		}
		return m.pick(m.state.Options[m.selected])
	}
	return m, nil
}

// pick records the choice and opens the optional feedback input.
func (m Model) pick(choice string) (tea.Model, tea.Cmd) {
	m.choice = choice
	m.typing = false
	m.notice = ""
	m.customInput.Reset()
	m.customInput.Placeholder = "Anything else? (enter to skip)"
	return m, m.customInput.Focus()
}

func (m Model) submit(p loop.Patch) (tea.Model, tea.Cmd) {
	if _, err := loop.ValidatePatch(m.state, p); err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.view = StateWorking
	m.notice = ""
	return m, tea.Batch(m.spinner.Tick, m.answer(p))
}

func (m Model) updateDone(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.offerChat && key.Matches(msg, m.keys.Yes) {
		m.view = StateChatting
		return m, tea.Batch(m.spinner.Tick, m.chat())
	}
	if !m.offerChat || key.Matches(msg, m.keys.No) {
		return m, tea.Quit
	}
	return m, nil
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("hone"))
	b.WriteString("  ")
	b.WriteString(m.header())
	b.WriteString("\n\n")

	box := BoxStyle.Width(m.width - 2)
	b.WriteString(box.Render(m.state.CurrentPrompt))
	b.WriteString("\n\n")

	switch m.view {
	case StateWorking:
		b.WriteString(m.spinner.View() + " " + m.workingLabel())
	case StateDetail:
		b.WriteString(m.viewDetail())
	case StateChoice:
		b.WriteString(m.viewChoice())
	case StateDone:
		b.WriteString(m.viewDone())
	case StateChatting:
		b.WriteString(m.spinner.View() + " Running the prompt...")
	case StateChatDone:
		b.WriteString(m.state.ChatResponse)
		b.WriteString("\n\n")
		b.WriteString(DimStyle.Render("Press any key to exit"))
	}

	if m.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(ErrorStyle.Render(m.notice))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) header() string {
	st := m.state
	if st.Phase == loop.PhaseJudging && st.IterationCount == 0 && st.Score == 0 {
		return DimStyle.Render(CounterLabel(st))
	}
	return "Score " + styledScore(st) + DimStyle.Render(" · "+CounterLabel(st))
}

func (m Model) workingLabel() string {
	if m.state.Phase == loop.PhaseRefining {
		return "Rewriting the prompt..."
	}
	return "Judging the prompt..."
}

func (m Model) viewDetail() string {
	var b strings.Builder
	if m.state.LastError != "" {
		b.WriteString(WarningStyle.Render("Provider error: " + m.state.LastError))
		b.WriteString("\n")
	}
	b.WriteString(QuestionStyle.Render(m.state.Guidance))
	b.WriteString("\n\n")
	b.WriteString(m.detailInput.View())
	b.WriteString("\n\n")
	b.WriteString(DimStyle.Render("Enter to submit · Esc to quit and resume later"))
	return b.String()
}

func (m Model) viewChoice() string {
	var b strings.Builder
	b.WriteString(QuestionStyle.Render(m.state.Question))
	b.WriteString("\n\n")

	if m.choice != "" {
		b.WriteString(SuccessStyle.Render("❯ " + m.choice))
		b.WriteString("\n\n")
		b.WriteString(m.customInput.View())
		b.WriteString("\n\n")
		b.WriteString(DimStyle.Render("Enter to submit · Esc to change the answer"))
		return b.String()
	}

	for i, label := range m.rows() {
		indicator := "  "
		style := NormalStyle
		if i == m.selected {
			indicator = "❯ "
			style = SelectedStyle
		}
		line := fmt.Sprintf("%s%d. %s", indicator, i+1, label)
		if i == m.selected && m.onCustomRow() && m.typing {
			line = fmt.Sprintf("%s%d. %s", indicator, i+1, m.customInput.View())
			b.WriteString(line)
		} else {
			b.WriteString(style.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("Enter to select · ↑↓ to navigate · q to quit and resume later"))
	return b.String()
}

func (m Model) viewDone() string {
	var b strings.Builder
	if m.state.IsGood() {
		b.WriteString(SuccessStyle.Render("✓ Prompt accepted"))
	} else {
		b.WriteString(WarningStyle.Render("Stopped at the cap"))
	}
	if m.offerChat {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("Run this prompt now? (y/n)"))
	}
	return b.String()
}
