package store

import (
	"sort"
	"strconv"
	"strings"

	"contactdesk-api/domain"
)

// sortKey is one record's value for the requested sort field. Numeric
// fields compare by difference, everything else by its string form.
type sortKey struct {
	num     float64
	str     string
	numeric bool
}

func numKey(v int64) sortKey  { return sortKey{num: float64(v), numeric: true} }
func strKey(v string) sortKey { return sortKey{str: v} }
func boolKey(v bool) sortKey  { return sortKey{str: strconv.FormatBool(v)} }

func dueKey(v *int64) sortKey {
	if v == nil {
		return sortKey{numeric: true}
	}
	return numKey(*v)
}

func compareKeys(a, b sortKey) int {
	if a.numeric && b.numeric {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.str, b.str)
}

// sortRecords orders recs by the query's sort field, descending when asked,
// with ascending id as the tie-breaker so equal keys still produce a stable,
// deterministic order.
func sortRecords[T any](recs []T, q domain.ListQuery, key func(T, string) sortKey, id func(T) string) {
	desc := q.SortOrder == domain.SortDesc
	sort.SliceStable(recs, func(i, j int) bool {
		c := compareKeys(key(recs[i], q.SortBy), key(recs[j], q.SortBy))
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return id(recs[i]) < id(recs[j])
	})
}

// paginate slices one 1-based page out of the filtered records. A page past
// the end yields empty data with the real total, not an error.
func paginate[T any](recs []T, page, pageSize int) domain.Page[T] {
	total := len(recs)
	start := (page - 1) * pageSize
	end := start + pageSize
	data := []T{}
	if start < total {
		if end > total {
			end = total
		}
		data = append(data, recs[start:end]...)
	}
	return domain.Page[T]{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  start+pageSize < total,
	}
}

func contactSortKey(c domain.Contact, field string) sortKey {
	switch field {
	case "firstName":
		return strKey(c.FirstName)
	case "lastName":
		return strKey(c.LastName)
	case "email":
		return strKey(c.Email)
	case "company":
		return strKey(c.Company)
	case "city":
		return strKey(c.City)
	case "state":
		return strKey(c.State)
	case "lastActivityAt":
		return numKey(c.LastActivityAt)
	default:
		return numKey(c.CreatedAt)
	}
}

func taskSortKey(t domain.Task, field string) sortKey {
	switch field {
	case "title":
		return strKey(t.Title)
	case "priority":
		return strKey(string(t.Priority))
	case "completed":
		return boolKey(t.Completed)
	case "dueDate":
		return dueKey(t.DueDate)
	case "updatedAt":
		return numKey(t.UpdatedAt)
	default:
		return numKey(t.CreatedAt)
	}
}
