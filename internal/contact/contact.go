package contact

import (
	"errors"
	"fmt"
	"time"
)

// Unknown is shown in place of a missing company or phone.
const Unknown = "未知"

// ErrIndexOutOfRange is returned by Delete when the position does not exist.
var ErrIndexOutOfRange = errors.New("index out of range")

// Contact is a single business-contact record. JSON names match the layout
// used by the browser extension store so existing dumps load unchanged.
type Contact struct {
	Company     string    `json:"company"`
	Phone       string    `json:"phone"`
	ExtraPhones int       `json:"extraPhones"`
	Address     string    `json:"address"`
	Email       string    `json:"email"`
	RegCapital  string    `json:"regCapital"`
	Timestamp   time.Time `json:"timestamp"`
}

// Key is the composite identity used for deduplication.
type Key struct {
	Phone   string
	Company string
}

// Key returns the identity of c.
func (c Contact) Key() Key {
	return Key{Phone: c.Phone, Company: c.Company}
}

// DisplayCompany returns the company or Unknown when empty.
func (c Contact) DisplayCompany() string {
	if c.Company == "" {
		return Unknown
	}
	return c.Company
}

// DisplayPhone returns the phone or Unknown when empty.
func (c Contact) DisplayPhone() string {
	if c.Phone == "" {
		return Unknown
	}
	return c.Phone
}

// Collection is an insertion-ordered set of contacts keyed by (phone, company).
// It is not safe for concurrent use; the host controller serializes access.
type Collection struct {
	items []Contact
	keys  map[Key]struct{}
}

// NewCollection builds a collection from records, dropping later duplicates.
func NewCollection(records []Contact) *Collection {
	c := &Collection{keys: make(map[Key]struct{}, len(records))}
	for _, r := range records {
		c.Append(r)
	}
	return c
}

func (c *Collection) Len() int { return len(c.items) }

// At returns the record at position i.
func (c *Collection) At(i int) (Contact, bool) {
	if i < 0 || i >= len(c.items) {
		return Contact{}, false
	}
	return c.items[i], true
}

// Records returns a copy of the records in insertion order.
func (c *Collection) Records() []Contact {
	out := make([]Contact, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection) Contains(k Key) bool {
	_, ok := c.keys[k]
	return ok
}

// Append adds r at the end unless its key is already present.
func (c *Collection) Append(r Contact) bool {
	if c.keys == nil {
		c.keys = make(map[Key]struct{})
	}
	k := r.Key()
	if _, ok := c.keys[k]; ok {
		return false
	}
	c.keys[k] = struct{}{}
	c.items = append(c.items, r)
	return true
}

// Delete removes the record at position i and shifts later records down.
// Out-of-range positions leave the collection unchanged.
func (c *Collection) Delete(i int) (Contact, error) {
	if i < 0 || i >= len(c.items) {
		return Contact{}, fmt.Errorf("delete %d of %d: %w", i, len(c.items), ErrIndexOutOfRange)
	}
	removed := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	delete(c.keys, removed.Key())
	return removed, nil
}

func (c *Collection) Clear() {
	c.items = nil
	c.keys = make(map[Key]struct{})
}
