// Package tasks tracks long-running admin operations so clients can poll
// their progress. The registry is the single shared task map; every mutation
// goes through it under a mutex. Mutating a task that has been cleared is a
// benign no-op: in-flight operation bodies keep running after clear-all and
// their final writes simply land nowhere.
package tasks

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leakdex/leakdex/internal/models"
)

// Registry is the in-memory task store.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*models.Task),
	}
}

// Create registers a new pending task and returns its id.
func (r *Registry) Create(taskType, filename string) string {
	task := &models.Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Status:    models.TaskStatusPending,
		StartTime: time.Now().UTC(),
		Filename:  filename,
	}

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	return task.ID
}

// Get returns a copy of one task with its ETA computed, or false if unknown.
func (r *Registry) Get(id string) (models.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return withETA(*task), true
}

// List returns copies of all tasks, newest first.
func (r *Registry) List() []models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, withETA(*task))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetPhase moves a task to a new phase label.
func (r *Registry) SetPhase(id, phase string) {
	r.mutate(id, func(t *models.Task) {
		t.Status = phase
	})
}

// SetMessage attaches a human-readable note to a task.
func (r *Registry) SetMessage(id, message string) {
	r.mutate(id, func(t *models.Task) {
		t.Message = message
	})
}

// SetTotal fixes the task's total unit count, established before work starts.
func (r *Registry) SetTotal(id string, total uint64) {
	r.mutate(id, func(t *models.Task) {
		t.Total = total
	})
}

// SetProgress sets the cumulative progress counter. Decreases are ignored so
// progress stays monotonic for pollers.
func (r *Registry) SetProgress(id string, progress uint64) {
	r.mutate(id, func(t *models.Task) {
		if progress > t.Progress {
			t.Progress = progress
		}
	})
}

// AddProgress increments the progress counter.
func (r *Registry) AddProgress(id string, delta uint64) {
	r.mutate(id, func(t *models.Task) {
		t.Progress += delta
	})
}

// Complete marks a task as successfully finished.
func (r *Registry) Complete(id, message string) {
	r.mutate(id, func(t *models.Task) {
		t.Status = models.TaskStatusCompleted
		t.Completed = true
		t.Message = message
	})
}

// Fail marks a task as terminally failed. The task stays visible until a
// clear action removes it.
func (r *Registry) Fail(id string, err error) {
	r.mutate(id, func(t *models.Task) {
		t.Status = models.TaskStatusError
		t.Completed = true
		t.Error = err.Error()
	})
}

// Watch consumes a stream of cumulative progress values and mirrors them
// into the task record until the channel closes. It decouples how progress
// is computed from how it is stored and polled.
func (r *Registry) Watch(id string, events <-chan uint64) {
	for progress := range events {
		r.SetProgress(id, progress)
	}
}

// Clear removes all terminal tasks, returning how many were removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleared := 0
	for id, task := range r.tasks {
		if task.Terminal() {
			delete(r.tasks, id)
			cleared++
		}
	}
	return cleared
}

// ClearAll removes every task, including in-flight ones. Running bodies are
// not interrupted; their remaining mutations target a missing id and vanish.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleared := len(r.tasks)
	r.tasks = make(map[string]*models.Task)
	return cleared
}

// mutate applies fn to the task if it still exists.
func (r *Registry) mutate(id string, fn func(*models.Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task, ok := r.tasks[id]; ok {
		fn(task)
	}
}

func withETA(task models.Task) models.Task {
	task.ETA = estimateETA(task.StartTime, task.Progress, task.Total)
	return task
}
