package merge

import (
	"github.com/hyperifyio/contactharvest/internal/contact"
)

// Result is the outcome of one merge pass.
type Result struct {
	Updated []contact.Contact
	Added   int
}

// Merge appends incoming records whose (phone, company) key is not already
// present in existing or earlier in incoming. Duplicates are dropped and the
// first-seen record is kept as-is. existing is not modified.
func Merge(existing []contact.Contact, incoming []contact.Contact) Result {
	seen := make(map[contact.Key]struct{}, len(existing)+len(incoming))
	out := make([]contact.Contact, 0, len(existing)+len(incoming))
	for _, c := range existing {
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	added := 0
	for _, c := range incoming {
		k := c.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
		added++
	}
	return Result{Updated: out, Added: added}
}

// Into merges incoming into col in place and returns the number added.
func Into(col *contact.Collection, incoming []contact.Contact) int {
	added := 0
	for _, c := range incoming {
		if col.Append(c) {
			added++
		}
	}
	return added
}
