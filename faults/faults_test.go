package faults

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"contactdesk-api/domain"
	"contactdesk-api/storage"
	"contactdesk-api/store"
)

// scriptPolicy fails calls according to a fixed script, one entry per call.
type scriptPolicy struct {
	failures []bool
	calls    int
}

func (p *scriptPolicy) Delay(Op) time.Duration { return 0 }

func (p *scriptPolicy) Fail(Op) error {
	fail := false
	if p.calls < len(p.failures) {
		fail = p.failures[p.calls]
	}
	p.calls++
	if fail {
		return ErrInjected
	}
	return nil
}

func newBackingStores(t *testing.T) (*store.Contacts, *store.Tasks) {
	t.Helper()
	fs := storage.NewFileStore(t.TempDir())
	contacts := []domain.Contact{
		{ID: "C00001", FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com", CreatedAt: 1, LastActivityAt: 1},
	}
	if err := fs.Save("contacts", contacts); err != nil {
		t.Fatalf("save contacts: %v", err)
	}
	if err := fs.Save("tasks", []domain.Task{{ID: "T00001", ContactID: "C00001", Title: "Call", Priority: domain.PriorityMedium}}); err != nil {
		t.Fatalf("save tasks: %v", err)
	}
	cs, ts := store.Open(fs, rand.New(rand.NewSource(1)))
	return cs, ts
}

func TestWriteFailureAfterMutationApplied(t *testing.T) {
	ctx := context.Background()
	contacts, _ := newBackingStores(t)
	flaky := NewFlakyContacts(contacts, &scriptPolicy{failures: []bool{true}})

	_, err := flaky.Create(ctx, domain.ContactInput{FirstName: "Alan", LastName: "Turing", Email: "alan@x.com"})
	var terr *domain.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError, got %v", err)
	}

	// The failure was injected after the store ran, so the record exists.
	page, err := contacts.List(ctx, domain.ContactQuery{ListQuery: domain.ListQuery{Search: "turing", PageSize: 10}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected the failed create to have applied, total=%d", page.Total)
	}
}

func TestReadFailureBeforeStore(t *testing.T) {
	ctx := context.Background()
	contacts, _ := newBackingStores(t)
	flaky := NewFlakyContacts(contacts, &scriptPolicy{failures: []bool{true, false}})

	_, err := flaky.List(ctx, domain.ContactQuery{})
	var terr *domain.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError, got %v", err)
	}

	page, err := flaky.List(ctx, domain.ContactQuery{})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 contact, got %d", page.Total)
	}
}

func TestValidationErrorNotMasked(t *testing.T) {
	ctx := context.Background()
	_, tasks := newBackingStores(t)
	flaky := NewFlakyTasks(tasks, &scriptPolicy{failures: []bool{true}})

	_, err := flaky.Create(ctx, domain.TaskInput{ContactID: "C09999", Title: "Call"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError to pass through, got %v", err)
	}
}

func TestDelayRespectsCancellation(t *testing.T) {
	contacts, _ := newBackingStores(t)
	policy := NewRandomPolicy(rand.New(rand.NewSource(7)))
	policy.MinDelay = time.Second
	policy.MaxDelay = 2 * time.Second
	flaky := NewFlakyContacts(contacts, policy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := flaky.List(ctx, domain.ContactQuery{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRandomPolicyRates(t *testing.T) {
	policy := NewRandomPolicy(rand.New(rand.NewSource(3)))
	policy.ReadFailRate = 0
	policy.WriteFailRate = 1
	if err := policy.Fail(OpRead); err != nil {
		t.Fatalf("expected reads to never fail at rate 0, got %v", err)
	}
	if err := policy.Fail(OpWrite); err == nil {
		t.Fatal("expected writes to always fail at rate 1")
	}
}

func TestRandomPolicyDelayBounds(t *testing.T) {
	policy := NewRandomPolicy(rand.New(rand.NewSource(11)))
	for i := 0; i < 100; i++ {
		d := policy.Delay(OpRead)
		if d < policy.MinDelay || d > policy.MaxDelay {
			t.Fatalf("delay %v outside [%v, %v]", d, policy.MinDelay, policy.MaxDelay)
		}
	}
}
