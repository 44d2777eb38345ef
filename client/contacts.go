package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"contactdesk-api/domain"
)

// ContactList is the optimistic view over the contact collection. Mutations
// update the local entries immediately; the server response (or terminal
// failure) reconciles them afterwards.
type ContactList struct {
	client *Client

	mu            sync.Mutex
	query         domain.ContactQuery
	entries       []Entry[domain.Contact]
	total         int
	hasNext       bool
	failedCreates map[string]domain.ContactInput
	refreshCancel context.CancelFunc
}

// NewContactList builds a view backed by the given client.
func NewContactList(c *Client) *ContactList {
	return &ContactList{
		client:        c,
		failedCreates: map[string]domain.ContactInput{},
	}
}

// SetQuery changes the view's query. Call Refresh to load it; a refresh
// already in flight for the old query is superseded then.
func (l *ContactList) SetQuery(q domain.ContactQuery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
}

// Refresh loads the current page, superseding any refresh still in flight.
// A superseded or cancelled refresh returns nil and leaves the view alone.
func (l *ContactList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	if l.refreshCancel != nil {
		l.refreshCancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	l.refreshCancel = cancel
	q := l.query
	l.mu.Unlock()

	page, err := l.client.ListContacts(rctx, q)
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
// and reconciles. It returns the entry's id: the server-assigned one on
// success, the temporary one otherwise. A failed creation stays in the list
// as Failed and can be resubmitted with RetryCreate.
func (l *ContactList) Create(ctx context.Context, in domain.ContactInput) (string, error) {
	tempID := "pending-" + uuid.NewString()
	now := time.Now().UnixMilli()
	optimistic := domain.Contact{
		ID:             tempID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		Company:        in.Company,
		City:           in.City,
		State:          in.State,
		Tags:           in.Tags,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	l.mu.Lock()
	l.entries = insertEntry(l.entries, 0, Entry[domain.Contact]{Record: optimistic, Status: StatusPending})
	l.total++
	l.mu.Unlock()

	return l.submitCreate(ctx, tempID, in)
}

// RetryCreate resubmits a creation that previously failed, reusing its
// temporary entry.
func (l *ContactList) RetryCreate(ctx context.Context, tempID string) (string, error) {
	l.mu.Lock()
	in, ok := l.failedCreates[tempID]
	if !ok {
		l.mu.Unlock()
		return "", domain.Validationf("no failed creation with id %q", tempID)
	}
	delete(l.failedCreates, tempID)
	if idx := findEntry(l.entries, contactID, tempID); idx >= 0 {
		l.entries[idx].Status = StatusPending
		l.entries[idx].Err = nil
	}
	l.mu.Unlock()

	return l.submitCreate(ctx, tempID, in)
}

func (l *ContactList) submitCreate(ctx context.Context, tempID string, in domain.ContactInput) (string, error) {
	created, err := l.client.CreateContact(ctx, in)

	l.mu.Lock()
	defer l.mu.Unlock()
	idx := findEntry(l.entries, contactID, tempID)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			// Rejected input cannot succeed on retry; drop the entry.
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
		l.entries[idx] = Entry[domain.Contact]{Record: created, Status: StatusConfirmed}
	}
	return created.ID, nil
}

// Delete removes the entry immediately and submits the request. A stale id
// (404) stays removed; a transient terminal failure restores the entry
// marked Failed, and a full Refresh is the recovery path.
func (l *ContactList) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	idx := findEntry(l.entries, contactID, id)
	var removed Entry[domain.Contact]
	if idx >= 0 {
		removed = l.entries[idx]
		l.entries = removeEntry(l.entries, idx)
		l.total--
	}
	l.mu.Unlock()

	err := l.client.DeleteContact(ctx, id)
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
func (l *ContactList) Entries() []Entry[domain.Contact] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry[domain.Contact], len(l.entries))
	copy(out, l.entries)
	return out
}

// Total returns the server-reported match count adjusted for local
// optimistic inserts and removals.
func (l *ContactList) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// HasNext reports whether the last refresh saw another page.
func (l *ContactList) HasNext() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasNext
}

func contactID(c domain.Contact) string { return c.ID }
