package scheduler

import (
	"container/heap"
	"sort"
	"sync"
	"time"
)

// TaskKind distinguishes cadence-driven runs from delayed retries
type TaskKind string

const (
	TaskScheduled TaskKind = "scheduled"
	TaskRetry     TaskKind = "retry"
)

// Task is a run due at a point in time
type Task struct {
	JobID string    `json:"job_id"`
	Kind  TaskKind  `json:"kind"`
	Due   time.Time `json:"due"`
	index int
}

func (t *Task) snapshot() Task {
	return Task{JobID: t.JobID, Kind: t.Kind, Due: t.Due}
}

type taskKey struct {
	jobID string
	kind  TaskKind
}

// TaskQueue is a min-heap of tasks ordered by due time. A job has at most one
// task of each kind; scheduling again replaces the previous one.
type TaskQueue struct {
	mu    sync.Mutex
	tasks taskHeap
	byKey map[taskKey]*Task
}

// NewTaskQueue creates an empty queue
func NewTaskQueue() *TaskQueue {
	tq := &TaskQueue{
		tasks: make(taskHeap, 0),
		byKey: make(map[taskKey]*Task),
	}
	heap.Init(&tq.tasks)
	return tq
}

// Schedule arms a task, replacing any pending task of the same job and kind
func (tq *TaskQueue) Schedule(jobID string, kind TaskKind, due time.Time) {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	key := taskKey{jobID, kind}
	if existing, ok := tq.byKey[key]; ok {
		existing.Due = due
		heap.Fix(&tq.tasks, existing.index)
		return
	}
	task := &Task{JobID: jobID, Kind: kind, Due: due}
	heap.Push(&tq.tasks, task)
	tq.byKey[key] = task
}

// Cancel removes the pending task of a job and kind
func (tq *TaskQueue) Cancel(jobID string, kind TaskKind) bool {
	tq.mu.Lock()
	defer tq.mu.Unlock()
	return tq.cancel(taskKey{jobID, kind})
}

// CancelJob removes every pending task of a job
func (tq *TaskQueue) CancelJob(jobID string) int {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	n := 0
	for _, kind := range []TaskKind{TaskScheduled, TaskRetry} {
		if tq.cancel(taskKey{jobID, kind}) {
			n++
		}
	}
	return n
}

func (tq *TaskQueue) cancel(key taskKey) bool {
	task, ok := tq.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&tq.tasks, task.index)
	delete(tq.byKey, key)
	return true
}

// PopDue removes and returns every task due at or before now, earliest first
func (tq *TaskQueue) PopDue(now time.Time) []Task {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	var due []Task
	for tq.tasks.Len() > 0 && !tq.tasks[0].Due.After(now) {
		task := heap.Pop(&tq.tasks).(*Task)
		delete(tq.byKey, taskKey{task.JobID, task.Kind})
		due = append(due, task.snapshot())
	}
	return due
}

// Pending returns a snapshot of queued tasks, earliest first
func (tq *TaskQueue) Pending() []Task {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	out := make([]Task, 0, len(tq.tasks))
	for _, task := range tq.tasks {
		out = append(out, task.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Due.Equal(out[j].Due) {
			return out[i].JobID < out[j].JobID
		}
		return out[i].Due.Before(out[j].Due)
	})
	return out
}

// Get returns the pending task of a job and kind
func (tq *TaskQueue) Get(jobID string, kind TaskKind) (Task, bool) {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	task, ok := tq.byKey[taskKey{jobID, kind}]
	if !ok {
		return Task{}, false
	}
	return task.snapshot(), true
}

// Len returns the number of pending tasks
func (tq *TaskQueue) Len() int {
	tq.mu.Lock()
	defer tq.mu.Unlock()
	return tq.tasks.Len()
}

// taskHeap implements heap.Interface
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].Due.Before(h[j].Due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*h)
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*h = old[0 : n-1]
	return task
}
