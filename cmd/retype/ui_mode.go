package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"retype/internal/driver"
	"retype/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode uiMode) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

type solveOutcome struct {
	result *driver.Result
	err    error
}

// solveWithUI runs the solve in the background while a progress view
// consumes its events. The view is drawn on stderr so stdout stays clean.
func solveWithUI(ctx context.Context, title string, srcs []driver.Source, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	done := make(chan solveOutcome, 1)
	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.SolveSources(ctx, srcs, opts)
		close(events)
		done <- solveOutcome{result: res, err: err}
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, nil, events), tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// Drain what the view left behind when it quit early.
	for range events {
	}
	outcome := <-done
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
