package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"contactdesk-api/domain"
)

type contactBackend interface {
	List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error)
	Get(ctx context.Context, id string) (domain.Contact, error)
	Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error)
	Delete(ctx context.Context, id string) error
}

type taskBackend interface {
	List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Create(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// listCache holds the Redis plumbing shared by both cached collections.
// List pages are cached under a key that embeds a per-collection version
// counter; bumping the counter on mutation invalidates every cached page at
// once without scanning keys.
type listCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func (lc *listCache) enabled() bool {
	return lc.redis != nil && lc.ttl > 0
}

func (lc *listCache) version(ctx context.Context, collection string) int64 {
	v, err := lc.redis.Get(ctx, collection+":ver").Result()
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (lc *listCache) bump(ctx context.Context, collections ...string) {
	for _, c := range collections {
		_ = lc.redis.Incr(ctx, c+":ver").Err()
	}
}

func (lc *listCache) pageKey(ctx context.Context, collection, queryKey string) string {
	return fmt.Sprintf("%s:v%d:%s", collection, lc.version(ctx, collection), queryKey)
}

func (lc *listCache) load(ctx context.Context, key string, v any) bool {
	data, err := lc.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = lc.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = lc.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (lc *listCache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = lc.redis.Set(ctx, key, data, lc.ttl).Err()
}

// CachedContacts wraps a contact store with Redis caching for list reads.
// Deleting a contact cascades into the task collection, so it invalidates
// both collections' cached pages.
type CachedContacts struct {
	base contactBackend
	lc   listCache
}

// NewCachedContacts builds the caching wrapper. A nil client or
// non-positive TTL yields a pass-through.
func NewCachedContacts(base contactBackend, client *redis.Client, ttl time.Duration) *CachedContacts {
	if base == nil {
		panic("storage.NewCachedContacts: base store is nil")
	}
	return &CachedContacts{base: base, lc: listCache{redis: client, ttl: ttl}}
}

func (c *CachedContacts) List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error) {
	if !c.lc.enabled() {
		return c.base.List(ctx, q)
	}
	key := c.lc.pageKey(ctx, "contacts", contactQueryKey(q))
	var page domain.Page[domain.Contact]
	if c.lc.load(ctx, key, &page) {
		return page, nil
	}
	page, err := c.base.List(ctx, q)
	if err != nil {
		return page, err
	}
	c.lc.store(ctx, key, page)
	return page, nil
}

func (c *CachedContacts) Get(ctx context.Context, id string) (domain.Contact, error) {
	return c.base.Get(ctx, id)
}

func (c *CachedContacts) Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error) {
	created, err := c.base.Create(ctx, in)
	if err != nil {
		return created, err
	}
	if c.lc.enabled() {
		c.lc.bump(ctx, "contacts")
	}
	return created, nil
}

func (c *CachedContacts) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	if c.lc.enabled() {
		c.lc.bump(ctx, "contacts", "tasks")
	}
	return nil
}

// CachedTasks wraps a task store with Redis caching for list reads.
type CachedTasks struct {
	base taskBackend
	lc   listCache
}

// NewCachedTasks builds the caching wrapper. A nil client or non-positive
// TTL yields a pass-through.
func NewCachedTasks(base taskBackend, client *redis.Client, ttl time.Duration) *CachedTasks {
	if base == nil {
		panic("storage.NewCachedTasks: base store is nil")
	}
	return &CachedTasks{base: base, lc: listCache{redis: client, ttl: ttl}}
}

func (c *CachedTasks) List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error) {
	if !c.lc.enabled() {
		return c.base.List(ctx, q)
	}
	key := c.lc.pageKey(ctx, "tasks", taskQueryKey(q))
	var page domain.Page[domain.Task]
	if c.lc.load(ctx, key, &page) {
		return page, nil
	}
	page, err := c.base.List(ctx, q)
	if err != nil {
		return page, err
	}
	c.lc.store(ctx, key, page)
	return page, nil
}

func (c *CachedTasks) Get(ctx context.Context, id string) (domain.Task, error) {
	return c.base.Get(ctx, id)
}

func (c *CachedTasks) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	created, err := c.base.Create(ctx, in)
	if err != nil {
		return created, err
	}
	if c.lc.enabled() {
		c.lc.bump(ctx, "tasks")
	}
	return created, nil
}

func (c *CachedTasks) Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	updated, err := c.base.Update(ctx, id, p)
	if err != nil {
		return updated, err
	}
	if c.lc.enabled() {
		c.lc.bump(ctx, "tasks")
	}
	return updated, nil
}

func (c *CachedTasks) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	if c.lc.enabled() {
		c.lc.bump(ctx, "tasks")
	}
	return nil
}

func contactQueryKey(q domain.ContactQuery) string {
	return listQueryKey(q.ListQuery)
}

func taskQueryKey(q domain.TaskQuery) string {
	completed := "any"
	if q.Completed != nil {
		completed = strconv.FormatBool(*q.Completed)
	}
	return fmt.Sprintf("%s|contact=%s|completed=%s", listQueryKey(q.ListQuery), q.ContactID, completed)
}

func listQueryKey(q domain.ListQuery) string {
	return fmt.Sprintf("q=%s|sort=%s:%s|page=%d:%d", q.Search, q.SortBy, q.SortOrder, q.Page, q.PageSize)
}
