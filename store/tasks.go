package store

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"contactdesk-api/domain"
	"contactdesk-api/storage"
)

const tasksCollection = "tasks"

// Tasks owns the in-memory task list, seeded and persisted the same way as
// Contacts. Construct it through Open so the cascade wiring is in place.
type Tasks struct {
	mu     sync.Mutex
	fs     *storage.FileStore
	rng    *rand.Rand
	seeded bool
	recs   []domain.Task

	contacts *Contacts
}

func (t *Tasks) ensureLocked(ctx context.Context) error {
	if t.seeded {
		return nil
	}
	var recs []domain.Task
	found, err := t.fs.Load(tasksCollection, &recs)
	if err != nil {
		return &domain.TransientError{Cause: err}
	}
	if !found || len(recs) == 0 {
		contactIDs, err := t.contacts.ids(ctx)
		if err != nil {
			return err
		}
		recs = seedTasks(t.rng, contactIDs)
		if err := t.fs.Save(tasksCollection, recs); err != nil {
			return &domain.TransientError{Cause: err}
		}
	}
	t.recs = recs
	t.seeded = true
	return nil
}

func (t *Tasks) persistLocked() error {
	if err := t.fs.Save(tasksCollection, t.recs); err != nil {
		return &domain.TransientError{Cause: err}
	}
	return nil
}

// List runs the filter, sort and paginate pipeline over a snapshot of the
// collection. Structured filters match exactly; search text matches title
// or notes as a case-insensitive substring.
func (t *Tasks) List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error) {
	q.Normalize("createdAt")
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	t.mu.Lock()
	if err := t.ensureLocked(ctx); err != nil {
		t.mu.Unlock()
		return domain.Page[domain.Task]{}, err
	}
	matched := make([]domain.Task, 0, len(t.recs))
	for _, r := range t.recs {
		if q.ContactID != "" && r.ContactID != q.ContactID {
			continue
		}
		if q.Completed != nil && r.Completed != *q.Completed {
			continue
		}
		if !r.SearchText(needle) {
			continue
		}
		matched = append(matched, r)
	}
	t.mu.Unlock()

	sortRecords(matched, q.ListQuery, taskSortKey, func(r domain.Task) string { return r.ID })
	return paginate(matched, q.Page, q.PageSize), nil
}

// Get returns the task with the given id.
func (t *Tasks) Get(ctx context.Context, id string) (domain.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureLocked(ctx); err != nil {
		return domain.Task{}, err
	}
	for _, r := range t.recs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Task{}, &domain.NotFoundError{ID: id}
}

// Create validates the input, checks the referenced contact exists, assigns
// a fresh id and timestamps, appends the record and persists the collection.
func (t *Tasks) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	ok, err := t.contacts.Exists(ctx, in.ContactID)
	if err != nil {
		return domain.Task{}, err
	}
	if !ok {
		return domain.Task{}, domain.Validationf("contact %q does not exist", in.ContactID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureLocked(ctx); err != nil {
		return domain.Task{}, err
	}

	now := time.Now().UnixMilli()
	rec := domain.Task{
		ID:        nextID("T", taskIDs(t.recs)),
		ContactID: in.ContactID,
		Title:     in.Title,
		Notes:     in.Notes,
		DueDate:   in.DueDate,
		Completed: in.Completed,
		Priority:  in.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.recs = append(t.recs, rec)
	if err := t.persistLocked(); err != nil {
		return domain.Task{}, err
	}
	return rec, nil
}

// Update applies a partial update: only fields present in the patch change.
// UpdatedAt is refreshed on every update, even a no-op one.
func (t *Tasks) Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	if err := p.Validate(); err != nil {
		return domain.Task{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureLocked(ctx); err != nil {
		return domain.Task{}, err
	}
	for i := range t.recs {
		if t.recs[i].ID != id {
			continue
		}
		p.Apply(&t.recs[i])
		t.recs[i].UpdatedAt = time.Now().UnixMilli()
		if err := t.persistLocked(); err != nil {
			return domain.Task{}, err
		}
		return t.recs[i], nil
	}
	return domain.Task{}, &domain.NotFoundError{ID: id}
}

// Delete removes the task with the given id and persists the collection.
func (t *Tasks) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureLocked(ctx); err != nil {
		return err
	}
	for i := range t.recs {
		if t.recs[i].ID != id {
			continue
		}
		t.recs = append(t.recs[:i], t.recs[i+1:]...)
		return t.persistLocked()
	}
	return &domain.NotFoundError{ID: id}
}

// DeleteByContact removes every task referencing the contact and reports
// how many were dropped. It persists only when something changed.
func (t *Tasks) DeleteByContact(ctx context.Context, contactID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureLocked(ctx); err != nil {
		return 0, err
	}
	kept := t.recs[:0]
	removed := 0
	for _, r := range t.recs {
		if r.ContactID == contactID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.recs = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, t.persistLocked()
}

func taskIDs(recs []domain.Task) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
