package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback that runs before or after the task.
type Hook func(ctx context.Context) error

// OnStart registers hooks that run after observability is set up and before
// the task starts.
func (a *App) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnStop registers hooks that run after the task ends, in reverse order of
// registration. Use them to close outputs and flush exporters.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks executes a slice of hooks sequentially, returning the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
