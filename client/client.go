// Package client is the consumer-side counterpart of the API: an HTTP
// client with retry and backoff for transient failures, and list
// controllers that apply mutations optimistically before the server
// confirms them.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"contactdesk-api/domain"
)

// RetryPolicy bounds how a request is retried. Only transient failures
// (503s and transport errors) are retried; validation and not-found
// responses surface immediately.
type RetryPolicy struct {
	// Attempts is the total try budget including the first request.
	Attempts int
	// Backoff grows linearly: the wait before attempt n is Backoff*n.
	Backoff time.Duration
	// Jitter adds a uniform random [0, Jitter) slice to every wait.
	Jitter time.Duration
}

// DefaultRetryPolicy matches the backoff envelope the UI was tuned for.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 4,
		Backoff:  150 * time.Millisecond,
		Jitter:   100 * time.Millisecond,
	}
}

// Client issues requests against the contactdesk API.
type Client struct {
	baseURL string
	hc      *http.Client
	retry   RetryPolicy
	logger  *log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a client for the API at baseURL. A nil http.Client falls back
// to http.DefaultClient; a zero retry policy falls back to the default.
func New(baseURL string, hc *http.Client, retry RetryPolicy, logger *log.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if retry.Attempts < 1 {
		retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      hc,
		retry:   retry,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ListContacts fetches one page of contacts.
func (c *Client) ListContacts(ctx context.Context, q domain.ContactQuery) (domain.Page[domain.Contact], error) {
	var page domain.Page[domain.Contact]
	err := c.do(ctx, http.MethodGet, "/api/contacts", listValues(q.ListQuery), nil, &page, "")
	return page, err
}

// CreateContact creates a contact and returns the server-confirmed record.
func (c *Client) CreateContact(ctx context.Context, in domain.ContactInput) (domain.Contact, error) {
	var created domain.Contact
	err := c.do(ctx, http.MethodPost, "/api/contacts", nil, in, &created, "")
	return created, err
}

// GetContact fetches a single contact by id.
func (c *Client) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	var record domain.Contact
	err := c.do(ctx, http.MethodGet, "/api/contacts/"+url.PathEscape(id), nil, nil, &record, id)
	return record, err
}

// DeleteContact deletes a contact; dependent tasks go with it server-side.
func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/contacts/"+url.PathEscape(id), nil, nil, nil, id)
}

// ListTasks fetches one page of tasks.
func (c *Client) ListTasks(ctx context.Context, q domain.TaskQuery) (domain.Page[domain.Task], error) {
	values := listValues(q.ListQuery)
	if q.ContactID != "" {
		values.Set("contactId", q.ContactID)
	}
	if q.Completed != nil {
		values.Set("completed", strconv.FormatBool(*q.Completed))
	}
	var page domain.Page[domain.Task]
	err := c.do(ctx, http.MethodGet, "/api/tasks", values, nil, &page, "")
	return page, err
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var record domain.Task
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &record, id)
	return record, err
}

// CreateTask creates a task and returns the server-confirmed record.
func (c *Client) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	var created domain.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", nil, in, &created, "")
	return created, err
}

// UpdateTask applies a partial update and returns the updated record.
func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	var updated domain.Task
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), nil, patch, &updated, id)
	return updated, err
}

// DeleteTask deletes a single task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, nil, id)
}

// do runs one logical request through the retry loop. recordID names the
// record the call targets so a 404 can be reported with the right id. All
// attempts of one call share a correlation id, which lets server logs tie
// retries together.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, recordID string) error {
	var payload []byte
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	correlationID := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		err := c.once(ctx, method, target, correlationID, payload, out, recordID)
		if err == nil {
			return nil
		}
		var terr *domain.TransientError
		if !errors.As(err, &terr) {
			return err
		}
		lastErr = err
		c.logger.WithFields(log.Fields{
			"method":     method,
			"path":       path,
			"attempt":    attempt,
			"request_id": correlationID,
			"error":      err.Error(),
		}).Debug("transient failure, will retry")
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, target, correlationID string, payload []byte, out any, recordID string) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", correlationID)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.TransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return statusError(resp.StatusCode, string(msg), recordID)
}

func statusError(status int, msg, recordID string) error {
	switch status {
	case http.StatusBadRequest:
		return &domain.ValidationError{Reason: strings.TrimPrefix(msg, "ValidationError: ")}
	case http.StatusNotFound:
		return &domain.NotFoundError{ID: recordID}
	case http.StatusServiceUnavailable:
		return &domain.TransientError{Cause: errors.New(strings.TrimPrefix(msg, "TransientError: "))}
	}
	return fmt.Errorf("unexpected status %d: %s", status, msg)
}

// sleep waits out the linear backoff plus jitter before the next attempt,
// bailing early when the context is cancelled.
func (c *Client) sleep(ctx context.Context, completed int) error {
	d := c.retry.Backoff * time.Duration(completed)
	if c.retry.Jitter > 0 {
		c.mu.Lock()
		d += time.Duration(c.rng.Int63n(int64(c.retry.Jitter)))
		c.mu.Unlock()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func listValues(q domain.ListQuery) url.Values {
	values := url.Values{}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.SortBy != "" {
		values.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		values.Set("sortOrder", q.SortOrder)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	return values
}
