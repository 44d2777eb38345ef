package domain

import (
	"strings"
	"unicode/utf8"
)

// Priority orders a task's urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const maxTitleLen = 120

// Task is a to-do item attached to a contact. Timestamps are epoch
// milliseconds; DueDate is nil when the task has no deadline.
type Task struct {
	ID        string   `json:"id"`
	ContactID string   `json:"contactId"`
	Title     string   `json:"title"`
	Notes     string   `json:"notes,omitempty"`
	DueDate   *int64   `json:"dueDate,omitempty"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// TaskInput carries the caller-supplied fields for a new task. Priority
// defaults to medium and Completed to false when omitted.
type TaskInput struct {
	ContactID string   `json:"contactId"`
	Title     string   `json:"title"`
	Notes     string   `json:"notes,omitempty"`
	DueDate   *int64   `json:"dueDate,omitempty"`
	Priority  Priority `json:"priority,omitempty"`
	Completed bool     `json:"completed,omitempty"`
}

// Validate trims the input in place, applies defaults and reports the first
// problem found.
func (in *TaskInput) Validate() error {
	in.ContactID = strings.TrimSpace(in.ContactID)
	in.Title = strings.TrimSpace(in.Title)
	if in.ContactID == "" {
		return Validationf("contactId is required")
	}
	if in.Title == "" {
		return Validationf("title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return Validationf("title exceeds %d characters", maxTitleLen)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return Validationf("priority %q is not one of low, medium, high", in.Priority)
	}
	return nil
}

// TaskPatch is a partial update. Only non-nil fields are applied.
type TaskPatch struct {
	Title     *string   `json:"title,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	DueDate   *int64    `json:"dueDate,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
}

// Validate reports the first problem with the provided fields.
func (p *TaskPatch) Validate() error {
	if p.Title != nil && utf8.RuneCountInString(strings.TrimSpace(*p.Title)) > maxTitleLen {
		return Validationf("title exceeds %d characters", maxTitleLen)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return Validationf("priority %q is not one of low, medium, high", *p.Priority)
	}
	return nil
}

// Apply overlays the patch onto t. A provided title that is empty after
// trimming keeps the previous title rather than blanking it; every other
// provided field replaces the stored value.
func (p *TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		if trimmed := strings.TrimSpace(*p.Title); trimmed != "" {
			t.Title = trimmed
		}
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
}

// SearchText reports whether title or notes contain the already-lowercased
// needle.
func (t Task) SearchText(needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Notes), needle)
}
