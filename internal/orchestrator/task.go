// ABOUTME: Completion handle for asynchronous enrichment and visualization work.
// ABOUTME: Callers can select on Done, block with Wait, or ignore it entirely.
package orchestrator

import "context"

// Task completes once its attempt has resolved, successfully or not.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the task resolves.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the outcome. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task resolves or ctx ends. Ending ctx does not stop the work.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
