package core

import (
	"time"

	"github.com/jellywatch/core/internal/id"
	"github.com/jellywatch/core/internal/queue"
)

// PushTask enqueues kind with the fair-spread delay, refusing on a
// task-ref collision. Returns the task id and whether the push was
// accepted.
func (c *Core) PushTask(kind queue.TaskKind) (id.TaskID, bool) {
	return c.q.PushWithDelay(kind, time.Now())
}

// PushTaskWithoutDelay enqueues kind eligible immediately, for
// user-initiated work.
func (c *Core) PushTaskWithoutDelay(kind queue.TaskKind) (id.TaskID, bool) {
	return c.q.PushWithoutDelay(kind)
}

// PendingTasks returns the pending lane in scheduled order.
func (c *Core) PendingTasks() []queue.Task { return c.q.Pending() }

// RunningTasks returns the running lane.
func (c *Core) RunningTasks() []queue.Task { return c.q.Running() }

// CompletedTasks returns the completed ring, oldest first.
func (c *Core) CompletedTasks() []queue.CompletedTask { return c.q.Completed() }

// TaskStatus answers which lane (if any) currently holds ref.
func (c *Core) TaskStatus(ref queue.Ref) queue.Status { return c.q.Status(ref) }
