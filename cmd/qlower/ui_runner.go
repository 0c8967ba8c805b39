package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"qlower/internal/buildpipeline"
	"qlower/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.TrimSpace(strings.ToLower(value))); mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI resolves auto to "stdout is a terminal and --quiet is off".
func shouldUseTUI(mode uiMode, quiet bool) bool {
	if mode == uiModeAuto {
		return !quiet && isTerminal(os.Stdout)
	}
	return mode == uiModeOn
}

// withProgressUI runs job in the background, feeding its progress events
// into the Bubble Tea file list until the job finishes.
func withProgressUI[T any](ctx context.Context, title string, files []string, job func(context.Context, buildpipeline.ProgressSink) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	events := make(chan buildpipeline.Event, 256)
	done := make(chan outcome, 1)

	go func() {
		defer close(events)
		v, err := job(ctx, buildpipeline.ChannelSink{Ch: events})
		done <- outcome{value: v, err: err}
	}()

	_, uiErr := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(os.Stdout)).Run()
	// Drain in case the UI quit early so the job never blocks on send.
	for range events {
	}
	res := <-done
	if uiErr != nil {
		return res.value, uiErr
	}
	return res.value, res.err
}

func runBuildWithUI(ctx context.Context, title string, files []string, req *buildpipeline.BuildRequest) (buildpipeline.BuildResult, error) {
	if req == nil {
		return buildpipeline.BuildResult{}, fmt.Errorf("missing build request")
	}
	return withProgressUI(ctx, title, files, func(ctx context.Context, sink buildpipeline.ProgressSink) (buildpipeline.BuildResult, error) {
		reqCopy := *req
		reqCopy.Progress = sink
		return buildpipeline.Build(ctx, &reqCopy)
	})
}
