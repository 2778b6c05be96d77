package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSpinnerModel(t *testing.T) {
	cancelled := false
	m := newSpinnerModel("Scanning", nil, func() { cancelled = true })

	if !strings.Contains(m.View(), "Scanning") {
		t.Errorf("View() = %q, want label", m.View())
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(spinnerModel)
	if !cancelled {
		t.Error("ctrl+c should cancel the task")
	}
	if m.done {
		t.Error("model should keep waiting for the task after ctrl+c")
	}

	boom := errors.New("boom")
	next, cmd := m.Update(taskDoneMsg{err: boom})
	m = next.(spinnerModel)
	if !m.done || m.err != boom {
		t.Errorf("after taskDoneMsg done = %v, err = %v", m.done, m.err)
	}
	if cmd == nil {
		t.Fatal("taskDoneMsg should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("cmd() = %T, want tea.QuitMsg", cmd())
	}
	if m.View() != "" {
		t.Errorf("View() after done = %q, want empty", m.View())
	}
}

func TestRunWithSpinner_NoTerminal(t *testing.T) {
	if IsTerminal() {
		t.Skip("stdout is a terminal")
	}

	ran := false
	want := errors.New("scan failed")
	err := RunWithSpinner(context.Background(), "Scanning", func(ctx context.Context) error {
		ran = true
		return want
	})
	if !ran {
		t.Error("task did not run")
	}
	if !errors.Is(err, want) {
		t.Errorf("RunWithSpinner() error = %v, want %v", err, want)
	}
}
