package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/go-pistonlauncher/pkg/engine"
	"github.com/go-pistonlauncher/pkg/progress"
)

const barWidth = 30

// runner is an engine run wired to a reporter
type runner func(ctx context.Context, reporter progress.Reporter) (*engine.Result, error)

// runWithProgress runs the engine on a worker goroutine while this side only
// consumes progress events. With noProgress the log reporter is used instead.
func (a *app) runWithProgress(ctx context.Context, out io.Writer, operation string, run runner) (*engine.Result, error) {
	if a.noProgress {
		return run(ctx, progress.NewLogReporter(a.logger, 10))
	}

	reporter := progress.NewChannelReporter(64)
	var result *engine.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result, err = run(gctx, reporter)
		// Closes the channel if the engine returned before reporting
		reporter.OnFinished(progress.Result{Operation: operation, Err: err})
		return err
	})
	g.Go(func() error {
		render(out, reporter.Events())
		return nil
	})

	err := g.Wait()
	return result, err
}

// render draws a single updating progress line until the channel closes
func render(out io.Writer, events <-chan progress.Event) {
	lastPercent := -1
	drawn := false

	for event := range events {
		switch event.Kind {
		case progress.EventTotal:
			lastPercent = -1
		case progress.EventTick:
			if event.Total == 0 {
				continue
			}
			percent := int(event.Completed * 100 / event.Total)
			if percent == lastPercent && event.Completed != event.Total {
				continue
			}
			lastPercent = percent
			fmt.Fprintf(out, "\r%s %3d%% (%d/%d)", bar(percent), percent, event.Completed, event.Total)
			drawn = true
		case progress.EventFinished:
			// Ticks may have been dropped; the final counts are exact
			if event.Total > 0 {
				percent := int(event.Completed * 100 / event.Total)
				fmt.Fprintf(out, "\r%s %3d%% (%d/%d)", bar(percent), percent, event.Completed, event.Total)
				drawn = true
			}
			if drawn {
				fmt.Fprintln(out)
			}
		}
	}
}

func bar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * barWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}
