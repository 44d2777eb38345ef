package domain

// Sort orders accepted by list queries.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultPageSize applies when a list query does not name one.
const DefaultPageSize = 20

// ListQuery holds the parameters shared by every collection listing:
// free-text search, sort field and order, and 1-based pagination.
type ListQuery struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// Normalize fills defaults so the query pipeline never sees zero values.
func (q *ListQuery) Normalize(defaultSortBy string) {
	if q.SortBy == "" {
		q.SortBy = defaultSortBy
	}
	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		q.SortOrder = SortDesc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
}

// ContactQuery selects and orders contacts.
type ContactQuery struct {
	ListQuery
}

// TaskQuery selects and orders tasks. ContactID and Completed are exact
// structured filters; nil Completed matches either state.
type TaskQuery struct {
	ListQuery
	ContactID string
	Completed *bool
}

// Page is one slice of a filtered listing. Total counts every record that
// matched the filter, not just the records in Data.
type Page[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
}
