package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"contactdesk-api/domain"
)

// scriptedServer serves canned responses in order, recording every request.
type scriptedServer struct {
	mu        sync.Mutex
	responses []scriptedResponse
	requests  []*http.Request
}

type scriptedResponse struct {
	status int
	body   string
}

func (s *scriptedServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = append(s.requests, r.Clone(context.Background()))
		var resp scriptedResponse
		if len(s.responses) > 0 {
			resp = s.responses[0]
			s.responses = s.responses[1:]
		} else {
			resp = scriptedResponse{status: http.StatusOK, body: "{}"}
		}
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}
}

func (s *scriptedServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedServer) request(i int) *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func (s *scriptedServer) requestID(i int) string {
	return s.request(i).Header.Get("X-Request-ID")
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Backoff: time.Millisecond, Jitter: time.Millisecond}
}

func testPage(t *testing.T, contacts ...domain.Contact) string {
	t.Helper()
	page := domain.Page[domain.Contact]{Data: contacts, Total: len(contacts), Page: 1, PageSize: 20}
	data, err := sonic.ConfigStd.Marshal(page)
	if err != nil {
		t.Fatalf("marshal page: %v", err)
	}
	return string(data)
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
		{http.StatusOK, testPage(t, domain.Contact{ID: "C00001", FirstName: "Ada"})},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(4), nil)
	page, err := c.ListContacts(context.Background(), domain.ContactQuery{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "C00001" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if script.count() != 3 {
		t.Fatalf("expected 3 attempts, got %d", script.count())
	}
}

func TestRetriesShareCorrelationID(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
		{http.StatusOK, testPage(t)},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(4), nil)
	if _, err := c.ListContacts(context.Background(), domain.ContactQuery{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if script.count() != 2 {
		t.Fatalf("expected 2 attempts, got %d", script.count())
	}
	first, second := script.requestID(0), script.requestID(1)
	if first == "" {
		t.Fatal("expected a correlation id on the first attempt")
	}
	if first != second {
		t.Fatalf("attempts should share a correlation id: %q vs %q", first, second)
	}
}

func TestValidationErrorNotRetried(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusBadRequest, "ValidationError: email is required"},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(4), nil)
	_, err := c.CreateContact(context.Background(), domain.ContactInput{FirstName: "Ada"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != "email is required" {
		t.Fatalf("expected the server reason without prefix, got %q", verr.Reason)
	}
	if script.count() != 1 {
		t.Fatalf("validation errors must not be retried, got %d attempts", script.count())
	}
}

func TestNotFoundCarriesRecordID(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusNotFound, "NotFoundError: no record with id \"T09999\""},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(4), nil)
	err := c.DeleteTask(context.Background(), "T09999")
	var nferr *domain.NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nferr.ID != "T09999" {
		t.Fatalf("expected record id T09999, got %q", nferr.ID)
	}
	if script.count() != 1 {
		t.Fatalf("not-found must not be retried, got %d attempts", script.count())
	}
}

func TestRetriesExhausted(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(3), nil)
	err := c.DeleteContact(context.Background(), "C00001")
	var terr *domain.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransientError after exhausting retries, got %v", err)
	}
	if script.count() != 3 {
		t.Fatalf("expected 3 attempts, got %d", script.count())
	}
}

func TestCancellationDuringBackoff(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
		{http.StatusServiceUnavailable, "TransientError: injected failure"},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, RetryPolicy{Attempts: 4, Backoff: time.Second}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := c.DeleteContact(ctx, "C00001")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if script.count() != 1 {
		t.Fatalf("expected a single attempt before the cancelled backoff, got %d", script.count())
	}
}

func TestUnexpectedStatus(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusTeapot, "nope"},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(4), nil)
	_, err := c.ListContacts(context.Background(), domain.ContactQuery{})
	if err == nil {
		t.Fatal("expected an error")
	}
	var terr *domain.TransientError
	if errors.As(err, &terr) {
		t.Fatalf("418 must not be treated as transient: %v", err)
	}
	if script.count() != 1 {
		t.Fatalf("expected 1 attempt, got %d", script.count())
	}
}

func TestListTasksEncodesFilters(t *testing.T) {
	script := &scriptedServer{responses: []scriptedResponse{
		{http.StatusOK, `{"data":[],"total":0,"page":1,"pageSize":20,"hasNext":false}`},
	}}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := New(srv.URL, nil, fastRetry(4), nil)
	completed := true
	q := domain.TaskQuery{
		ListQuery: domain.ListQuery{Search: "call", SortBy: "dueDate", SortOrder: "asc", Page: 3, PageSize: 10},
		ContactID: "C00002",
		Completed: &completed,
	}
	if _, err := c.ListTasks(context.Background(), q); err != nil {
		t.Fatalf("list: %v", err)
	}

	got := script.request(0).URL.Query()
	want := map[string]string{
		"q": "call", "sortBy": "dueDate", "sortOrder": "asc",
		"page": "3", "pageSize": "10",
		"contactId": "C00002", "completed": "true",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Fatalf("param %s: expected %q, got %q", k, v, got.Get(k))
		}
	}
}
