package store

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"contactdesk-api/domain"
	"contactdesk-api/storage"
)

const contactsCollection = "contacts"

// Contacts owns the in-memory contact list. It is seeded from persistence
// on first use and rewrites the whole document after every mutation; the
// in-memory slice is the source of truth for the process lifetime.
type Contacts struct {
	mu     sync.Mutex
	fs     *storage.FileStore
	rng    *rand.Rand
	seeded bool
	recs   []domain.Contact

	tasks *Tasks
}

// Open builds the contact and task stores over fs and wires the cascade
// collaboration between them. rng drives the demo dataset generated on
// first use when no document exists yet; nil means time-seeded.
func Open(fs *storage.FileStore, rng *rand.Rand) (*Contacts, *Tasks) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	contacts := &Contacts{fs: fs, rng: rng}
	tasks := &Tasks{fs: fs, rng: rng, contacts: contacts}
	contacts.tasks = tasks
	return contacts, tasks
}

func (c *Contacts) ensureLocked() error {
	if c.seeded {
		return nil
	}
	var recs []domain.Contact
	found, err := c.fs.Load(contactsCollection, &recs)
	if err != nil {
		return &domain.TransientError{Cause: err}
	}
	if !found || len(recs) == 0 {
		recs = seedContacts(c.rng)
		if err := c.fs.Save(contactsCollection, recs); err != nil {
			return &domain.TransientError{Cause: err}
		}
		log.Infof("seeded %s with %d records", contactsCollection, len(recs))
	}
	c.recs = recs
	c.seeded = true
	return nil
}

func (c *Contacts) persistLocked() error {
	if err := c.fs.Save(contactsCollection, c.recs); err != nil {
		return &domain.TransientError{Cause: err}
	}
	return nil
}

// List runs the filter, sort and paginate pipeline over a snapshot of the
// collection.
func (c *Contacts) List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error) {
	q.Normalize("createdAt")
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	c.mu.Lock()
	if err := c.ensureLocked(); err != nil {
		c.mu.Unlock()
		return domain.Page[domain.Contact]{}, err
	}
	matched := make([]domain.Contact, 0, len(c.recs))
	for _, r := range c.recs {
		if r.SearchText(needle) {
			matched = append(matched, r)
		}
	}
	c.mu.Unlock()

	sortRecords(matched, q.ListQuery, contactSortKey, func(r domain.Contact) string { return r.ID })
	return paginate(matched, q.Page, q.PageSize), nil
}

// Get returns the contact with the given id.
func (c *Contacts) Get(ctx context.Context, id string) (domain.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(); err != nil {
		return domain.Contact{}, err
	}
	for _, r := range c.recs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Contact{}, &domain.NotFoundError{ID: id}
}

// Create validates the input, assigns a fresh id and timestamps, appends
// the record and persists the collection. Email uniqueness is checked
// case-insensitively against every existing contact.
func (c *Contacts) Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error) {
	if err := in.Validate(); err != nil {
		return domain.Contact{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(); err != nil {
		return domain.Contact{}, err
	}
	for _, r := range c.recs {
		if strings.EqualFold(r.Email, in.Email) {
			return domain.Contact{}, domain.Validationf("email %q is already in use", in.Email)
		}
	}

	now := time.Now().UnixMilli()
	rec := domain.Contact{
		ID:             nextID("C", contactIDs(c.recs)),
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
	c.recs = append(c.recs, rec)
	if err := c.persistLocked(); err != nil {
		return domain.Contact{}, err
	}
	return rec, nil
}

// Delete removes the contact and then cascades through the task store,
// dropping every task that referenced it. Both stores operate on their own
// in-memory truth, so the cascade cannot go stale against disk. A cascade
// failure is logged, not returned; the contact deletion already happened.
func (c *Contacts) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := -1
	if err := c.ensureLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	for i, r := range c.recs {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return &domain.NotFoundError{ID: id}
	}
	c.recs = append(c.recs[:idx], c.recs[idx+1:]...)
	err := c.persistLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if n, cascadeErr := c.tasks.DeleteByContact(ctx, id); cascadeErr != nil {
		log.Warnf("cascade delete of tasks for %s failed: %v", id, cascadeErr)
	} else if n > 0 {
		log.Debugf("cascade deleted %d tasks for %s", n, id)
	}
	return nil
}

// Exists reports whether a contact with the given id is present.
func (c *Contacts) Exists(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(); err != nil {
		return false, err
	}
	for _, r := range c.recs {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// ids returns the current contact ids, seeding the collection first if
// needed. Used by the task store's own seeding step.
func (c *Contacts) ids(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(); err != nil {
		return nil, err
	}
	return contactIDs(c.recs), nil
}

func contactIDs(recs []domain.Contact) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
