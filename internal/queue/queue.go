package queue

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/jellywatch/core/internal/id"
)

// softCapacity is the threshold at which Queue reports "at capacity" so
// bulk producers (the periodic sweep) can back off; it is advisory only,
// not enforced.
const softCapacity = 50

// enqueueDelay is the minimum spacing between successively delayed pushes, so a burst of signals doesn't dispatch all at once.
const enqueueDelay = 250 * time.Millisecond

// pendingEntry is one queued task in the pending lane; its position is its
// index in Queue.pending.
type pendingEntry struct {
	task Task
}

// Queue is the task queue. It is owned by the scheduler
// loop; callers outside that loop (the UI/HTTP layer) only ever call Push*,
// Status, RemovePending and the lane snapshots, never NextTask/Complete.
type Queue struct {
	mu sync.Mutex

	pending   []pendingEntry
	running   []Task
	completed []CompletedTask

	completedCap int
	completedPos int
	completedLen int

	refOwner map[Ref]id.TaskID
	statusOf map[id.TaskID]Status

	// lastScheduled tracks the latest scheduled_at handed out by
	// PushWithDelay, so successive delayed pushes spread out by at least
	// enqueueDelay.
	lastScheduled time.Time

	// modified is the "take-modified" flag: set by any mutation,
	// cleared by the loop when it consults it to decide whether to
	// recompute its next wake.
	modified atomic.Bool
}

const defaultCompletedCapacity = 200

// New creates an empty queue with the given completed-ring capacity.
// capacity <= 0 uses a sane default.
func New(completedCapacity int) *Queue {
	if completedCapacity <= 0 {
		completedCapacity = defaultCompletedCapacity
	}
	return &Queue{
		completed:    make([]CompletedTask, completedCapacity),
		completedCap: completedCapacity,
		refOwner:     make(map[Ref]id.TaskID),
		statusOf:     make(map[id.TaskID]Status),
	}
}

// refsFree reports whether none of refs are currently held by a pending or
// running task.
func (q *Queue) refsFree(refs []Ref) bool {
	for _, r := range refs {
		if _, held := q.refOwner[r]; held {
			return false
		}
	}
	return true
}

// Push enqueues kind scheduled at scheduledAt (nil means eligible
// immediately), refusing if any of its task-refs collide with an existing
// pending or running task. Returns the new task id
// and true on success, or the zero id and false if refused.
func (q *Queue) Push(kind TaskKind, scheduledAt *time.Time) (id.TaskID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	refs := kind.Refs()
	if !q.refsFree(refs) {
		return id.TaskID{}, false
	}

	task := Task{ID: id.NewTaskID(), Kind: kind, ScheduledAt: scheduledAt}
	q.insertPendingLocked(task)
	for _, r := range refs {
		q.refOwner[r] = task.ID
	}
	q.statusOf[task.ID] = StatusPending
	q.modified.Store(true)
	return task.ID, true
}

// PushWithDelay enqueues kind spaced at least enqueueDelay after the last
// delayed push, for signals that should fan out
// rather than all fire at once (e.g. the periodic sweep).
func (q *Queue) PushWithDelay(kind TaskKind, now time.Time) (id.TaskID, bool) {
	q.mu.Lock()
	base := now
	if q.lastScheduled.After(base) {
		base = q.lastScheduled
	}
	scheduledAt := base.Add(enqueueDelay)
	q.lastScheduled = scheduledAt
	q.mu.Unlock()

	return q.Push(kind, &scheduledAt)
}

// PushWithoutDelay enqueues kind eligible immediately, for user-initiated
// work that should not wait behind the fan-out spacing.
func (q *Queue) PushWithoutDelay(kind TaskKind) (id.TaskID, bool) {
	return q.Push(kind, nil)
}

// insertPendingLocked inserts task into q.pending keeping it sorted by
// scheduled_at ascending; a nil scheduled_at ("eligible immediately") sorts
// before every non-nil value. Tasks with equal scheduled_at keep push order.
func (q *Queue) insertPendingLocked(task Task) {
	i := sort.Search(len(q.pending), func(i int) bool {
		return scheduledBefore(task.ScheduledAt, q.pending[i].task.ScheduledAt)
	})
	q.pending = append(q.pending, pendingEntry{})
	copy(q.pending[i+1:], q.pending[i:])
	q.pending[i] = pendingEntry{task: task}
}

// scheduledBefore reports whether a sorts strictly before b under the
// nil-means-immediately convention.
func scheduledBefore(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}

// IsAtCapacity reports whether the pending lane has reached the soft
// capacity threshold.
func (q *Queue) IsAtCapacity() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) >= softCapacity
}

// Status answers an O(1) lookup of ref's current lane.
func (q *Queue) Status(ref Ref) Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	taskID, held := q.refOwner[ref]
	if !held {
		return StatusNone
	}
	return q.statusOf[taskID]
}

// NextTask pops the pending head if it is eligible: its scheduled_at is in
// the past (or nil), or its id equals timedOutID (the loop's sleep token
// firing even if wall time is slightly off). The popped task moves into
// the running lane.
func (q *Queue) NextTask(now time.Time, timedOutID *id.TaskID) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Task{}, false
	}
	head := q.pending[0].task

	eligible := head.ScheduledAt == nil || !head.ScheduledAt.After(now)
	if !eligible && timedOutID != nil && head.ID == *timedOutID {
		eligible = true
	}
	if !eligible {
		return Task{}, false
	}

	q.pending = q.pending[1:]
	q.running = append(q.running, head)
	q.statusOf[head.ID] = StatusRunning
	q.modified.Store(true)
	return head, true
}

// NextSleep returns how long to sleep before the pending head becomes
// eligible, and its id (the token the loop re-presents to NextTask when
// the timer fires), or ok=false if there is no pending task.
func (q *Queue) NextSleep(now time.Time) (delay time.Duration, taskID id.TaskID, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return 0, id.TaskID{}, false
	}
	head := q.pending[0].task
	if head.ScheduledAt == nil || !head.ScheduledAt.After(now) {
		return 0, head.ID, true
	}
	return head.ScheduledAt.Sub(now), head.ID, true
}

// Complete removes task from the running lane, records it into the
// completed ring with completion time now, and returns the task's prior
// status.
func (q *Queue) Complete(now time.Time, task Task) Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	prior := q.statusOf[task.ID]

	for i, r := range q.running {
		if r.ID == task.ID {
			q.running = append(q.running[:i], q.running[i+1:]...)
			break
		}
	}
	delete(q.statusOf, task.ID)
	for _, ref := range task.Kind.Refs() {
		if owner, ok := q.refOwner[ref]; ok && owner == task.ID {
			delete(q.refOwner, ref)
		}
	}

	q.completed[q.completedPos] = CompletedTask{Task: task, CompletedAt: now}
	q.completedPos = (q.completedPos + 1) % q.completedCap
	if q.completedLen < q.completedCap {
		q.completedLen++
	}

	q.modified.Store(true)
	return prior
}

// RemovePending drops every pending task holding ref, releasing all of
// each dropped task's refs; used when a local entity is removed so tasks
// keyed by it don't dispatch against a dangling id. Running tasks are
// left alone; their dispatch already holds a snapshot. Returns how many tasks were dropped.
func (q *Queue) RemovePending(ref Ref) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	kept := q.pending[:0]
	for _, e := range q.pending {
		holds := false
		for _, r := range e.task.Kind.Refs() {
			if r == ref {
				holds = true
				break
			}
		}
		if !holds {
			kept = append(kept, e)
			continue
		}
		removed++
		delete(q.statusOf, e.task.ID)
		for _, r := range e.task.Kind.Refs() {
			if owner, ok := q.refOwner[r]; ok && owner == e.task.ID {
				delete(q.refOwner, r)
			}
		}
	}
	q.pending = kept
	if removed > 0 {
		q.modified.Store(true)
	}
	return removed
}

// Pending returns a snapshot of the pending lane in scheduled order.
func (q *Queue) Pending() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.pending))
	for i, e := range q.pending {
		out[i] = e.task
	}
	return out
}

// Running returns a snapshot of the running lane.
func (q *Queue) Running() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.running))
	copy(out, q.running)
	return out
}

// Completed returns a snapshot of the completed ring, oldest first.
func (q *Queue) Completed() []CompletedTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.completedLen < q.completedCap {
		out := make([]CompletedTask, q.completedLen)
		copy(out, q.completed[:q.completedLen])
		return out
	}
	out := make([]CompletedTask, q.completedCap)
	copy(out, q.completed[q.completedPos:])
	copy(out[q.completedCap-q.completedPos:], q.completed[:q.completedPos])
	return out
}

// TakeModified reports whether the queue has been mutated since the last
// call, clearing the flag.
func (q *Queue) TakeModified() bool {
	return q.modified.Swap(false)
}
