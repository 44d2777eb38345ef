package store

import (
	"fmt"
	"strconv"
	"strings"
)

const idDigits = 5

// nextID allocates the next sequential id for a collection: the given
// prefix followed by a zero-padded numeric suffix one past the highest
// suffix currently in use. The counter is derived from live records, not
// persisted, so deleting the highest-numbered record frees its number.
func nextID(prefix string, existing []string) string {
	max := 0
	for _, id := range existing {
		suffix, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n <= max {
			continue
		}
		max = n
	}
	return fmt.Sprintf("%s%0*d", prefix, idDigits, max+1)
}
