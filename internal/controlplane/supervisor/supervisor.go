// Package supervisor runs a fixed set of named, long-lived tasks and brings
// all of them down together: if one task returns (error or not) or the
// parent context is cancelled, every other task is cancelled and Run waits
// for all of them to exit before returning. Every long-lived loop this
// control plane runs (watchers, the role controller, writers, the IPC
// server) goes through here.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a named unit of work. It must return promptly once ctx is
// cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run starts every task in its own goroutine under a shared cancellable
// context derived from ctx. The first task to return (for any reason)
// triggers cancellation of the rest. Run blocks until all tasks have
// returned, then returns a combined error built from every task that failed
// with a non-nil, non-context.Canceled error. A nil return means every task
// either completed cleanly or was cancelled as part of shutdown.
func Run(ctx context.Context, log *slog.Logger, tasks ...Task) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			err := task.Run(runCtx)
			if err != nil && runCtx.Err() == nil {
				log.Error("task exited with error", "task", task.Name, "error", err)
				errs[i] = fmt.Errorf("task %s: %w", task.Name, err)
			} else {
				log.Debug("task stopped", "task", task.Name)
			}
			cancel()
		}(i, task)
	}

	wg.Wait()

	var combined error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if combined == nil {
			combined = err
		} else {
			combined = fmt.Errorf("%w; %w", combined, err)
		}
	}
	return combined
}
