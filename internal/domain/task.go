package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task in its lifecycle.
type Status string

// Possible task status values. These are the wire values stored in the
// status store and carried on queue payloads, shared by producer and
// worker processes.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether the status is COMPLETED or FAILED.
// No transition is permitted out of a terminal status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Task represents one unit of submitted text-generation work and its
// tracked outcome. The JSON field names are the stable wire format shared
// by the status store and the work channel; optional fields are omitted
// until the lifecycle reaches the state that sets them.
type Task struct {
	// TaskID is the unique identifier assigned at creation. It is the sole
	// key for all subsequent lookups and never changes.
	TaskID string `json:"task_id"`

	// Prompt is the opaque input payload supplied by the submitter.
	Prompt string `json:"prompt"`

	// Metadata is an open, submitter-supplied mapping. The lifecycle core
	// never interprets it.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"created_at"`

	// Status is the only mutable field besides the result fields below.
	Status Status `json:"status"`

	// Result holds the generated output. Present only when Status is
	// COMPLETED.
	Result string `json:"result,omitempty"`

	// Error holds a human-readable failure description. Present only when
	// Status is FAILED.
	Error string `json:"error,omitempty"`

	// CompletedAt is set when a terminal status is first reached and is
	// preserved by any later idempotent terminal write.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a PENDING task with a freshly generated id and the
// current time as its creation timestamp.
func NewTask(prompt string, metadata map[string]any) *Task {
	return &Task{
		TaskID:    uuid.NewString(),
		Prompt:    prompt,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
	}
}

// Validate checks the structural invariants of a task record. It is used
// when deserializing records that crossed a process boundary.
func (t *Task) Validate() error {
	if t.TaskID == "" {
		return fmt.Errorf("%w: task_id is empty", ErrValidation)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, t.Status)
	}
	if t.Result != "" && t.Error != "" {
		return fmt.Errorf("%w: result and error are mutually exclusive", ErrValidation)
	}
	if !t.Status.IsTerminal() && (t.Result != "" || t.Error != "" || t.CompletedAt != nil) {
		return fmt.Errorf("%w: terminal fields set on non-terminal status %q", ErrValidation, t.Status)
	}
	return nil
}

// Marshal serializes the task to its wire form.
func (t *Task) Marshal() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return data, nil
}

// UnmarshalTask deserializes a task from its wire form and validates it.
func UnmarshalTask(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
