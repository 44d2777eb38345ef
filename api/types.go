package api

import (
	"context"

	"contactdesk-api/domain"
)

// ContactStore abstracts the contact collection for handlers.
type ContactStore interface {
	List(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error)
	Get(ctx context.Context, id string) (domain.Contact, error)
	Create(ctx context.Context, in domain.ContactInput) (domain.Contact, error)
	Delete(ctx context.Context, id string) error
}

// TaskStore abstracts the task collection for handlers.
type TaskStore interface {
	List(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Create(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// deleteResponse is the body of a successful DELETE.
type deleteResponse struct {
	OK bool `json:"ok"`
}
