package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pragmax/internal/driver"
	"pragmax/internal/ui"
)

type transformOutcome struct {
	results []driver.FileResult
	err     error
}

func runTransformWithUI(ctx context.Context, title string, files []string, opts driver.Options) ([]driver.FileResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan transformOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.TransformFiles(ctx, files, opts)
		outcomeCh <- transformOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// keep the workers unblocked when the view exits early
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
