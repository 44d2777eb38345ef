package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"contactdesk-api/domain"
)

type stubContacts struct {
	listCalls int
	page      domain.Page[domain.Contact]
	err       error
}

func (s *stubContacts) List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error) {
	s.listCalls++
	return s.page, s.err
}

func (s *stubContacts) Get(ctx context.Context, id string) (domain.Contact, error) {
	return domain.Contact{}, errors.New("unexpected Get call")
}

func (s *stubContacts) Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error) {
	return domain.Contact{ID: "C00001"}, nil
}

func (s *stubContacts) Delete(ctx context.Context, id string) error { return nil }

type stubTasks struct {
	listCalls int
	page      domain.Page[domain.Task]
}

func (s *stubTasks) List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error) {
	s.listCalls++
	return s.page, nil
}

func (s *stubTasks) Get(ctx context.Context, id string) (domain.Task, error) {
	return domain.Task{}, errors.New("unexpected Get call")
}

func (s *stubTasks) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	return domain.Task{ID: "T00001"}, nil
}

func (s *stubTasks) Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	return domain.Task{ID: id}, nil
}

func (s *stubTasks) Delete(ctx context.Context, id string) error { return nil }

func newCacheRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedContactsListMissThenHit(t *testing.T) {
	ctx := context.Background()
	base := &stubContacts{page: domain.Page[domain.Contact]{
		Data:     []domain.Contact{{ID: "C00001", FirstName: "Ada"}},
		Total:    1,
		Page:     1,
		PageSize: 20,
	}}
	cache := NewCachedContacts(base, newCacheRedis(t), time.Minute)

	q := domain.ContactQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}
	for i := 0; i < 3; i++ {
		page, err := cache.List(ctx, q)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if page.Total != 1 || page.Data[0].ID != "C00001" {
			t.Fatalf("unexpected page: %+v", page)
		}
	}
	if base.listCalls != 1 {
		t.Fatalf("expected 1 backing call, got %d", base.listCalls)
	}
}

func TestCachedContactsDistinctQueriesMiss(t *testing.T) {
	ctx := context.Background()
	base := &stubContacts{}
	cache := NewCachedContacts(base, newCacheRedis(t), time.Minute)

	if _, err := cache.List(ctx, domain.ContactQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := cache.List(ctx, domain.ContactQuery{ListQuery: domain.ListQuery{Page: 2, PageSize: 20}}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if base.listCalls != 2 {
		t.Fatalf("expected distinct queries to miss separately, got %d calls", base.listCalls)
	}
}

func TestCachedContactsCreateInvalidates(t *testing.T) {
	ctx := context.Background()
	base := &stubContacts{}
	cache := NewCachedContacts(base, newCacheRedis(t), time.Minute)

	q := domain.ContactQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}
	if _, err := cache.List(ctx, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := cache.Create(ctx, domain.ContactInput{FirstName: "Ada", LastName: "L", Email: "a@x.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cache.List(ctx, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	if base.listCalls != 2 {
		t.Fatalf("expected create to invalidate cached pages, got %d calls", base.listCalls)
	}
}

func TestContactDeleteInvalidatesTaskPages(t *testing.T) {
	ctx := context.Background()
	client := newCacheRedis(t)
	contacts := NewCachedContacts(&stubContacts{}, client, time.Minute)
	taskBase := &stubTasks{}
	tasks := NewCachedTasks(taskBase, client, time.Minute)

	tq := domain.TaskQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}
	if _, err := tasks.List(ctx, tq); err != nil {
		t.Fatalf("list: %v", err)
	}
	// Contact deletion cascades into tasks, so their pages must go stale too.
	if err := contacts.Delete(ctx, "C00001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tasks.List(ctx, tq); err != nil {
		t.Fatalf("list: %v", err)
	}
	if taskBase.listCalls != 2 {
		t.Fatalf("expected task pages invalidated by contact delete, got %d calls", taskBase.listCalls)
	}
}

func TestCachedTasksUpdateInvalidates(t *testing.T) {
	ctx := context.Background()
	base := &stubTasks{}
	cache := NewCachedTasks(base, newCacheRedis(t), time.Minute)

	tq := domain.TaskQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}
	if _, err := cache.List(ctx, tq); err != nil {
		t.Fatalf("list: %v", err)
	}
	completed := true
	if _, err := cache.Update(ctx, "T00001", domain.TaskPatch{Completed: &completed}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := cache.List(ctx, tq); err != nil {
		t.Fatalf("list: %v", err)
	}
	if base.listCalls != 2 {
		t.Fatalf("expected update to invalidate cached pages, got %d calls", base.listCalls)
	}
}

func TestCacheNilClientPassthrough(t *testing.T) {
	ctx := context.Background()
	base := &stubContacts{}
	cache := NewCachedContacts(base, nil, time.Minute)

	q := domain.ContactQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}
	for i := 0; i < 2; i++ {
		if _, err := cache.List(ctx, q); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if base.listCalls != 2 {
		t.Fatalf("expected passthrough without redis, got %d calls", base.listCalls)
	}
}

func TestCacheErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	base := &stubContacts{err: &domain.TransientError{}}
	cache := NewCachedContacts(base, newCacheRedis(t), time.Minute)

	q := domain.ContactQuery{ListQuery: domain.ListQuery{Page: 1, PageSize: 20}}
	if _, err := cache.List(ctx, q); err == nil {
		t.Fatal("expected error from backing store")
	}
	base.err = nil
	if _, err := cache.List(ctx, q); err != nil {
		t.Fatalf("list: %v", err)
	}
	if base.listCalls != 2 {
		t.Fatalf("expected failed list not cached, got %d calls", base.listCalls)
	}
}
