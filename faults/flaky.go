package faults

import (
	"context"

	"contactdesk-api/domain"
)

// ContactStore is the slice of the contact store the decorator wraps.
type ContactStore interface {
	List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error)
	Get(ctx context.Context, id string) (domain.Contact, error)
	Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error)
	Delete(ctx context.Context, id string) error
}

// TaskStore is the slice of the task store the decorator wraps.
type TaskStore interface {
	List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Create(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// FlakyContacts applies a fault policy around a contact store. Reads fail
// before reaching the store; writes run first and may then have their
// success discarded.
type FlakyContacts struct {
	base   ContactStore
	policy Policy
}

// NewFlakyContacts wraps base with the given policy.
func NewFlakyContacts(base ContactStore, policy Policy) *FlakyContacts {
	return &FlakyContacts{base: base, policy: policy}
}

func (f *FlakyContacts) List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error) {
	if err := f.before(ctx, OpRead); err != nil {
		return domain.Page[domain.Contact]{}, err
	}
	return f.base.List(ctx, q)
}

func (f *FlakyContacts) Get(ctx context.Context, id string) (domain.Contact, error) {
	if err := f.before(ctx, OpRead); err != nil {
		return domain.Contact{}, err
	}
	return f.base.Get(ctx, id)
}

func (f *FlakyContacts) Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error) {
	if err := wait(ctx, f.policy.Delay(OpWrite)); err != nil {
		return domain.Contact{}, err
	}
	created, err := f.base.Create(ctx, in)
	if err != nil {
		return domain.Contact{}, err
	}
	if ferr := f.policy.Fail(OpWrite); ferr != nil {
		return domain.Contact{}, &domain.TransientError{Cause: ferr}
	}
	return created, nil
}

func (f *FlakyContacts) Delete(ctx context.Context, id string) error {
	if err := wait(ctx, f.policy.Delay(OpWrite)); err != nil {
		return err
	}
	if err := f.base.Delete(ctx, id); err != nil {
		return err
	}
	if ferr := f.policy.Fail(OpWrite); ferr != nil {
		return &domain.TransientError{Cause: ferr}
	}
	return nil
}

func (f *FlakyContacts) before(ctx context.Context, op Op) error {
	if err := wait(ctx, f.policy.Delay(op)); err != nil {
		return err
	}
	if ferr := f.policy.Fail(op); ferr != nil {
		return &domain.TransientError{Cause: ferr}
	}
	return nil
}

// FlakyTasks applies a fault policy around a task store.
type FlakyTasks struct {
	base   TaskStore
	policy Policy
}

// NewFlakyTasks wraps base with the given policy.
func NewFlakyTasks(base TaskStore, policy Policy) *FlakyTasks {
	return &FlakyTasks{base: base, policy: policy}
}

func (f *FlakyTasks) List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error) {
	if err := f.before(ctx, OpRead); err != nil {
		return domain.Page[domain.Task]{}, err
	}
	return f.base.List(ctx, q)
}

func (f *FlakyTasks) Get(ctx context.Context, id string) (domain.Task, error) {
	if err := f.before(ctx, OpRead); err != nil {
		return domain.Task{}, err
	}
	return f.base.Get(ctx, id)
}

func (f *FlakyTasks) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := wait(ctx, f.policy.Delay(OpWrite)); err != nil {
		return domain.Task{}, err
	}
	created, err := f.base.Create(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	if ferr := f.policy.Fail(OpWrite); ferr != nil {
		return domain.Task{}, &domain.TransientError{Cause: ferr}
	}
	return created, nil
}

func (f *FlakyTasks) Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	if err := wait(ctx, f.policy.Delay(OpWrite)); err != nil {
		return domain.Task{}, err
	}
	updated, err := f.base.Update(ctx, id, p)
	if err != nil {
		return domain.Task{}, err
	}
	if ferr := f.policy.Fail(OpWrite); ferr != nil {
		return domain.Task{}, &domain.TransientError{Cause: ferr}
	}
	return updated, nil
}

func (f *FlakyTasks) Delete(ctx context.Context, id string) error {
	if err := wait(ctx, f.policy.Delay(OpWrite)); err != nil {
		return err
	}
	if err := f.base.Delete(ctx, id); err != nil {
		return err
	}
	if ferr := f.policy.Fail(OpWrite); ferr != nil {
		return &domain.TransientError{Cause: ferr}
	}
	return nil
}

func (f *FlakyTasks) before(ctx context.Context, op Op) error {
	if err := wait(ctx, f.policy.Delay(op)); err != nil {
		return err
	}
	if ferr := f.policy.Fail(op); ferr != nil {
		return &domain.TransientError{Cause: ferr}
	}
	return nil
}
