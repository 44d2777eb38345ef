package client

// Status tags a local list entry's reconciliation state.
type Status int

const (
	// StatusConfirmed means the record matches what the server returned.
	StatusConfirmed Status = iota
	// StatusPending means a mutation was applied locally and is in flight.
	StatusPending
	// StatusFailed means the mutation exhausted its retries; Err says why.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Entry wraps a record with its optimistic-update state. The wrapper never
// crosses the API boundary; it exists purely client-side.
type Entry[T any] struct {
	Record T
	Status Status
	Err    error
}

func findEntry[T any](entries []Entry[T], id func(T) string, target string) int {
	for i := range entries {
		if id(entries[i].Record) == target {
			return i
		}
	}
	return -1
}

func removeEntry[T any](entries []Entry[T], idx int) []Entry[T] {
	return append(entries[:idx], entries[idx+1:]...)
}

func insertEntry[T any](entries []Entry[T], idx int, e Entry[T]) []Entry[T] {
	if idx < 0 || idx > len(entries) {
		idx = len(entries)
	}
	entries = append(entries, Entry[T]{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

func confirmed[T any](recs []T) []Entry[T] {
	entries := make([]Entry[T], len(recs))
	for i, r := range recs {
		entries[i] = Entry[T]{Record: r, Status: StatusConfirmed}
	}
	return entries
}
