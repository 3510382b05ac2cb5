package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"imgharvest/internal/orchestrator"
	"imgharvest/pkg/journal"
	"imgharvest/pkg/task"
	"imgharvest/pkg/ui"
	"imgharvest/pkg/ui/tui"
)

const entryBuffer = 256

// runTasks queues tasks on one orchestrator and renders their journals
// until all of them finish or the user interrupts
func runTasks(cmd *cobra.Command, a *app, tasks ...task.Task) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summaries []orchestrator.Summary
	var err error
	if useTUI && isTerminal(os.Stdout) {
		summaries, err = runLive(ctx, a, tasks)
	} else {
		summaries, err = runPlain(ctx, cmd.OutOrStdout(), a, tasks)
	}
	if err != nil {
		return err
	}
	return report(cmd.OutOrStdout(), summaries)
}

// drive submits tasks and hands each summary to onSummary. stopView is
// called when ctx ends before the tasks do. Wait on the returned group
// before reading anything onSummary wrote.
func drive(ctx context.Context, a *app, listener journal.Listener, tasks []task.Task, onSummary func(orchestrator.Summary), stopView func()) (*errgroup.Group, error) {
	orch := orchestrator.New(listener, len(tasks), a.log)
	for _, t := range tasks {
		if _, err := orch.Submit(t); err != nil {
			orch.Shutdown()
			return nil, err
		}
	}

	finished := make(chan struct{})
	g := new(errgroup.Group)

	g.Go(func() error {
		orch.Close()
		return nil
	})
	g.Go(func() error {
		defer close(finished)
		for s := range orch.Results() {
			onSummary(s)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			a.log.Warn("interrupt received, stopping after the current download")
			orch.Shutdown()
			if stopView != nil {
				stopView()
			}
		case <-finished:
		}
		return nil
	})

	return g, nil
}

func runPlain(ctx context.Context, out io.Writer, a *app, tasks []task.Task) ([]orchestrator.Summary, error) {
	var listener journal.Listener = journal.Discard
	var queue *journal.QueuedListener
	if !quiet {
		queue = journal.NewQueuedListener(ui.NewRenderer(out, palette()), entryBuffer)
		listener = queue
	}

	var summaries []orchestrator.Summary
	collect := func(s orchestrator.Summary) { summaries = append(summaries, s) }

	g, err := drive(ctx, a, listener, tasks, collect, nil)
	if err != nil {
		if queue != nil {
			queue.Close()
		}
		return nil, err
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if queue != nil {
		queue.Close()
	}
	return summaries, nil
}

func runLive(ctx context.Context, a *app, tasks []task.Task) ([]orchestrator.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := tui.NewTUI(cancel)
	queue := journal.NewQueuedListener(view, entryBuffer)

	var summaries []orchestrator.Summary
	collect := func(s orchestrator.Summary) { summaries = append(summaries, s) }

	g, err := drive(ctx, a, queue, tasks, collect, view.Stop)
	if err != nil {
		queue.Close()
		return nil, err
	}

	viewErr := make(chan error, 1)
	go func() { viewErr <- view.Start() }()

	if err := g.Wait(); err != nil {
		return nil, err
	}
	queue.Close()
	for _, s := range summaries {
		view.TaskDone(s.ID, s.Name, s.State, s.Successes, s.Failures, s.Elapsed)
	}
	view.Done()

	if err := <-viewErr; err != nil {
		return nil, fmt.Errorf("terminal UI failed: %w", err)
	}
	return summaries, nil
}

// report prints the final lines, sends notifications and turns failed or
// interrupted tasks into a non-zero exit
func report(out io.Writer, summaries []orchestrator.Summary) error {
	r := ui.NewRenderer(out, palette())
	var notifier *ui.Notifier
	if notify {
		notifier = ui.NewNotifier()
	}

	failed, interrupted := 0, 0
	for _, s := range summaries {
		r.Complete(s.Name, s.State, s.Successes, s.Failures, s.Elapsed)
		notifier.TaskFinished(s.Name, s.State.String(), s.Successes, s.Failures)
		switch s.State {
		case journal.Failed:
			failed++
		case journal.Interrupted:
			interrupted++
		}
	}

	if interrupted > 0 {
		return fmt.Errorf("interrupted")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d task(s) failed", failed, len(summaries))
	}
	return nil
}
