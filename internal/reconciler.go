package internal

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	StatusCompleted = "COMPLETED"
	StatusApproved  = "APPROVED"
	StatusFailed    = "FAILED"

	// DefaultTaskName is used for tasks first seen without a name
	DefaultTaskName = "Untitled Task"
	// DefaultAssetType is used when approving an asset with no known type
	DefaultAssetType = "sprite"
)

// Task is the client view of one server-side asynchronous job
type Task struct {
	AssetID   AssetID   `json:"asset_id" yaml:"asset_id"`
	Name      string    `json:"name" yaml:"name"`
	Status    string    `json:"status" yaml:"status"`
	ImageURL  string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	AssetType string    `json:"asset_type,omitempty" yaml:"asset_type,omitempty"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	FirstSeen time.Time `json:"first_seen" yaml:"first_seen"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Updates   int       `json:"updates" yaml:"updates"`
}

// AwaitingApproval reports whether the task can be approved: completed with an image
func (t Task) AwaitingApproval() bool {
	return t.Status == StatusCompleted && t.ImageURL != ""
}

// ImageRef resolves the image reference against base and appends a freshness token,
// since a regenerated asset may reuse the same URL. It returns "" when there is no image.
func (t Task) ImageRef(base string, now time.Time) string {
	if t.ImageURL == "" {
		return ""
	}
	ref := t.ImageURL
	if b, err := url.Parse(base); err == nil && base != "" {
		if rel, err := url.Parse(t.ImageURL); err == nil {
			ref = b.ResolveReference(rel).String()
		}
	}
	sep := "?"
	if strings.Contains(ref, "?") {
		sep = "&"
	}
	return ref + sep + "t=" + strconv.FormatInt(now.UnixMilli(), 10)
}

// TaskViewUpdate is the result of folding one event into the registry
type TaskViewUpdate struct {
	Task             Task
	Created          bool
	AwaitingApproval bool
}

// TaskReconciler owns the task registry: at most one Task per asset id, updated in
// place by every event that names it.
//
// The reconciler is not safe for concurrent use; the Controller loop owns it.
type TaskReconciler struct {
	tasks map[AssetID]*Task
	order []AssetID
	now   func() time.Time
}

// NewTaskReconciler creates an empty registry
func NewTaskReconciler() *TaskReconciler {
	return &TaskReconciler{
		tasks: make(map[AssetID]*Task),
		now:   time.Now,
	}
}

// Apply merges ev into the registry. Every field present in ev replaces the stored
// value; absent fields keep prior values on an existing task and stay unset on a new one.
func (r *TaskReconciler) Apply(ev TaskEvent) TaskViewUpdate {
	now := r.now()
	task, ok := r.tasks[ev.AssetID]
	created := !ok
	if created {
		task = &Task{
			AssetID:   ev.AssetID,
			Name:      DefaultTaskName,
			FirstSeen: now,
		}
		r.tasks[ev.AssetID] = task
		r.order = append(r.order, ev.AssetID)
	}

	if ev.Name != nil && *ev.Name != "" {
		task.Name = *ev.Name
	}
	if ev.Status != nil {
		task.Status = *ev.Status
	} else if ev.Kind == "ERROR" {
		task.Status = StatusFailed
	}
	if ev.ImageURL != nil {
		task.ImageURL = *ev.ImageURL
	}
	if ev.AssetType != nil {
		task.AssetType = *ev.AssetType
	}
	if ev.Message != nil {
		task.Message = *ev.Message
	}
	task.UpdatedAt = now
	task.Updates++

	return TaskViewUpdate{
		Task:             *task,
		Created:          created,
		AwaitingApproval: task.AwaitingApproval(),
	}
}

// MarkApproved moves a task to the approved terminal status
func (r *TaskReconciler) MarkApproved(id AssetID) (TaskViewUpdate, bool) {
	task, ok := r.tasks[id]
	if !ok {
		return TaskViewUpdate{}, false
	}
	task.Status = StatusApproved
	task.UpdatedAt = r.now()
	return TaskViewUpdate{Task: *task, AwaitingApproval: task.AwaitingApproval()}, true
}

// Get returns a copy of the task for id
func (r *TaskReconciler) Get(id AssetID) (Task, bool) {
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Snapshot returns copies of all tasks, most recently first seen first
func (r *TaskReconciler) Snapshot() []Task {
	out := make([]Task, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, *r.tasks[r.order[i]])
	}
	return out
}

// Len returns the number of known tasks
func (r *TaskReconciler) Len() int {
	return len(r.order)
}
