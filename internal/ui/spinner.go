package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// SpinnerStyle colours the spinner glyph
	SpinnerStyle = lipgloss.NewStyle().Foreground(AccentColor)

	// MutedStyle is for the elapsed time next to the label
	MutedStyle = lipgloss.NewStyle().Foreground(MutedColor)
)

type taskDoneMsg struct{ err error }

// spinnerModel shows a spinner and elapsed time until its task reports back.
// ctrl+c cancels the task's context; the model still waits for the task to
// return so partial results are kept.
type spinnerModel struct {
	label   string
	spinner spinner.Model
	start   time.Time
	task    tea.Cmd
	cancel  context.CancelFunc
	done    bool
	err     error
}

func newSpinnerModel(label string, task tea.Cmd, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return spinnerModel{
		label:   label,
		spinner: s,
		start:   time.Now(),
		task:    task,
		cancel:  cancel,
	}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.task)
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancel()
		}
		return m, nil

	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.start).Truncate(time.Second)
	return fmt.Sprintf("%s %s %s\n", m.spinner.View(), m.label, MutedStyle.Render(elapsed.String()))
}

// RunWithSpinner runs task while a spinner labelled label animates on stdout
// and returns task's error. Off a terminal the task runs without any output.
func RunWithSpinner(ctx context.Context, label string, task func(context.Context) error) error {
	if !IsTerminal() {
		return task(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := func() tea.Msg { return taskDoneMsg{err: task(ctx)} }

	final, err := tea.NewProgram(newSpinnerModel(label, run, cancel), tea.WithOutput(os.Stdout)).Run()
	if err != nil {
		return fmt.Errorf("spinner failed: %w", err)
	}
	return final.(spinnerModel).err
}
