package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"contactdesk-api/domain"
)

// Request bodies past this size are treated as invalid input.
const maxBodyBytes = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, contacts ContactStore, tasks TaskStore, logger *log.Logger) {
	e.GET("/api/contacts", listContacts(contacts, logger))
	e.POST("/api/contacts", createContact(contacts))
	e.GET("/api/contacts/:id", getContact(contacts))
	e.DELETE("/api/contacts/:id", deleteContact(contacts))

	e.GET("/api/tasks", listTasks(tasks, logger))
	e.POST("/api/tasks", createTask(tasks))
	e.GET("/api/tasks/:id", getTask(tasks))
	e.PATCH("/api/tasks/:id", updateTask(tasks))
	e.DELETE("/api/tasks/:id", deleteTask(tasks))

	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func listContacts(store ContactStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newListRequestMetrics("/api/contacts", logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		lq, qerr := parseListQuery(c)
		if qerr != nil {
			metrics.SetErrorStage("invalid_query")
			err = writeError(c, qerr)
			return err
		}

		fetchStart := time.Now()
		page, listErr := store.List(c.Request().Context(), domain.ContactQuery{ListQuery: lq})
		metrics.ObserveFetch(time.Since(fetchStart))
		if listErr != nil {
			metrics.SetErrorStage("store")
			err = writeError(c, listErr)
			return err
		}
		metrics.SetRecordsReturned(len(page.Data))
		metrics.SetHasNext(page.HasNext)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, page)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createContact(store ContactStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.ContactInput
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, err)
		}
		created, err := store.Create(c.Request().Context(), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func getContact(store ContactStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		record, err := store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, record)
	}
}

func deleteContact(store ContactStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deleteResponse{OK: true})
	}
}

func listTasks(store TaskStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newListRequestMetrics("/api/tasks", logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		lq, qerr := parseListQuery(c)
		if qerr != nil {
			metrics.SetErrorStage("invalid_query")
			err = writeError(c, qerr)
			return err
		}
		tq := domain.TaskQuery{ListQuery: lq, ContactID: c.QueryParam("contactId")}
		if v := strings.TrimSpace(c.QueryParam("completed")); v != "" {
			completed, perr := strconv.ParseBool(v)
			if perr != nil {
				metrics.SetErrorStage("invalid_query")
				err = writeError(c, domain.Validationf("completed must be true or false"))
				return err
			}
			tq.Completed = &completed
		}

		fetchStart := time.Now()
		page, listErr := store.List(c.Request().Context(), tq)
		metrics.ObserveFetch(time.Since(fetchStart))
		if listErr != nil {
			metrics.SetErrorStage("store")
			err = writeError(c, listErr)
			return err
		}
		metrics.SetRecordsReturned(len(page.Data))
		metrics.SetHasNext(page.HasNext)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, page)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store TaskStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.TaskInput
		if err := decodeBody(c, &in); err != nil {
			return writeError(c, err)
		}
		created, err := store.Create(c.Request().Context(), in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func getTask(store TaskStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		record, err := store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, record)
	}
}

func updateTask(store TaskStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return writeError(c, err)
		}
		updated, err := store.Update(c.Request().Context(), c.Param("id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteTask(store TaskStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deleteResponse{OK: true})
	}
}

// decodeBody reads a JSON body with unknown fields rejected, so typos in
// field names surface as validation errors instead of silent no-ops.
func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodyBytes)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Validationf("invalid request body")
	}
	return nil
}

func parseListQuery(c echo.Context) (domain.ListQuery, error) {
	q := domain.ListQuery{
		Search:    c.QueryParam("q"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	if v := strings.TrimSpace(c.QueryParam("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, domain.Validationf("page must be a positive integer")
		}
		q.Page = page
	}
	if v := strings.TrimSpace(c.QueryParam("pageSize")); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return q, domain.Validationf("pageSize must be a positive integer")
		}
		q.PageSize = size
	}
	return q, nil
}

// writeError maps the store error taxonomy onto status codes. Anything
// outside the taxonomy is a programming error and reported as a 500.
func writeError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	var nferr *domain.NotFoundError
	var terr *domain.TransientError
	switch {
	case errors.As(err, &verr):
		return c.String(http.StatusBadRequest, verr.Error())
	case errors.As(err, &nferr):
		return c.String(http.StatusNotFound, nferr.Error())
	case errors.As(err, &terr):
		return c.String(http.StatusServiceUnavailable, terr.Error())
	}
	c.Logger().Error(err)
	return c.String(http.StatusInternalServerError, err.Error())
}
