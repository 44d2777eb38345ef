package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"contactdesk-api/domain"
)

// TaskList is the optimistic view over the task collection.
type TaskList struct {
	client *Client

	mu            sync.Mutex
	query         domain.TaskQuery
	entries       []Entry[domain.Task]
	total         int
	hasNext       bool
	failedCreates map[string]domain.TaskInput
	refreshCancel context.CancelFunc
}

// NewTaskList builds a view backed by the given client.
func NewTaskList(c *Client) *TaskList {
	return &TaskList{
		client:        c,
		failedCreates: map[string]domain.TaskInput{},
	}
}

// SetQuery changes the view's query. Call Refresh to load it.
func (l *TaskList) SetQuery(q domain.TaskQuery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
}

// Refresh loads the current page, superseding any refresh still in flight.
// A superseded or cancelled refresh returns nil and leaves the view alone.
func (l *TaskList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	if l.refreshCancel != nil {
		l.refreshCancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	l.refreshCancel = cancel
	q := l.query
	l.mu.Unlock()

	page, err := l.client.ListTasks(rctx, q)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if rctx.Err() != nil {
		return nil
	}

	l.mu.Lock()
	l.entries = confirmed(page.Data)
	l.total = page.Total
	l.hasNext = page.HasNext
	l.mu.Unlock()
	return nil
}

// Create inserts a pending entry under a temporary id, submits the request
// and reconciles, mirroring ContactList.Create.
func (l *TaskList) Create(ctx context.Context, in domain.TaskInput) (string, error) {
	tempID := "pending-" + uuid.NewString()
	now := time.Now().UnixMilli()
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	optimistic := domain.Task{
		ID:        tempID,
		ContactID: in.ContactID,
		Title:     in.Title,
		Notes:     in.Notes,
		DueDate:   in.DueDate,
		Completed: in.Completed,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}

	l.mu.Lock()
	l.entries = insertEntry(l.entries, 0, Entry[domain.Task]{Record: optimistic, Status: StatusPending})
	l.total++
	l.mu.Unlock()

	return l.submitCreate(ctx, tempID, in)
}

// RetryCreate resubmits a creation that previously failed, reusing its
// temporary entry.
func (l *TaskList) RetryCreate(ctx context.Context, tempID string) (string, error) {
	l.mu.Lock()
	in, ok := l.failedCreates[tempID]
	if !ok {
		l.mu.Unlock()
		return "", domain.Validationf("no failed creation with id %q", tempID)
	}
	delete(l.failedCreates, tempID)
	if idx := findEntry(l.entries, taskID, tempID); idx >= 0 {
		l.entries[idx].Status = StatusPending
		l.entries[idx].Err = nil
	}
	l.mu.Unlock()

	return l.submitCreate(ctx, tempID, in)
}

func (l *TaskList) submitCreate(ctx context.Context, tempID string, in domain.TaskInput) (string, error) {
	created, err := l.client.CreateTask(ctx, in)

	l.mu.Lock()
	defer l.mu.Unlock()
	idx := findEntry(l.entries, taskID, tempID)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			if idx >= 0 {
				l.entries = removeEntry(l.entries, idx)
				l.total--
			}
			return tempID, err
		}
		if idx >= 0 {
			l.entries[idx].Status = StatusFailed
			l.entries[idx].Err = err
		}
		l.failedCreates[tempID] = in
		return tempID, err
	}
	if idx >= 0 {
		l.entries[idx] = Entry[domain.Task]{Record: created, Status: StatusConfirmed}
	}
	return created.ID, nil
}

// Update applies the patch to the local entry immediately and submits it.
// On success the server record replaces the optimistic one. A stale id
// drops the entry; any other terminal failure leaves the entry Failed with
// the optimistic record still showing, recoverable by Refresh.
func (l *TaskList) Update(ctx context.Context, id string, patch domain.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	idx := findEntry(l.entries, taskID, id)
	if idx >= 0 {
		patch.Apply(&l.entries[idx].Record)
		l.entries[idx].Record.UpdatedAt = time.Now().UnixMilli()
		l.entries[idx].Status = StatusPending
		l.entries[idx].Err = nil
	}
	l.mu.Unlock()

	updated, err := l.client.UpdateTask(ctx, id, patch)

	l.mu.Lock()
	defer l.mu.Unlock()
	idx = findEntry(l.entries, taskID, id)
	if err != nil {
		var nferr *domain.NotFoundError
		if errors.As(err, &nferr) {
			if idx >= 0 {
				l.entries = removeEntry(l.entries, idx)
				l.total--
			}
			return err
		}
		if idx >= 0 {
			l.entries[idx].Status = StatusFailed
			l.entries[idx].Err = err
		}
		return err
	}
	if idx >= 0 {
		l.entries[idx] = Entry[domain.Task]{Record: updated, Status: StatusConfirmed}
	}
	return nil
}

// Delete removes the entry immediately and submits the request, mirroring
// ContactList.Delete.
func (l *TaskList) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	idx := findEntry(l.entries, taskID, id)
	var removed Entry[domain.Task]
	if idx >= 0 {
		removed = l.entries[idx]
		l.entries = removeEntry(l.entries, idx)
		l.total--
	}
	l.mu.Unlock()

	err := l.client.DeleteTask(ctx, id)
	if err == nil {
		return nil
	}
	var nferr *domain.NotFoundError
	if errors.As(err, &nferr) {
		return err
	}
	if idx >= 0 {
		l.mu.Lock()
		removed.Status = StatusFailed
		removed.Err = err
		l.entries = insertEntry(l.entries, idx, removed)
		l.total++
		l.mu.Unlock()
	}
	return err
}

// Entries returns a snapshot of the view's entries.
func (l *TaskList) Entries() []Entry[domain.Task] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry[domain.Task], len(l.entries))
	copy(out, l.entries)
	return out
}

// Total returns the server-reported match count adjusted for local
// optimistic inserts and removals.
func (l *TaskList) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// HasNext reports whether the last refresh saw another page.
func (l *TaskList) HasNext() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasNext
}

func taskID(t domain.Task) string { return t.ID }
