package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

// ContactsKey is the key under which the collection is persisted.
const ContactsKey = "contacts"

// KV is a minimal persistent key-value store.
type KV interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid store key %q", key)
	}
	return nil
}

// Open returns a store for the named backend: "file" (a directory) or
// "sqlite" (a database file).
func Open(backend, path string, strictPerms bool) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "file":
		return &FileStore{Dir: path, StrictPerms: strictPerms}, nil
	case "sqlite", "sqlite3":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}

// LoadContacts reads the persisted collection. A missing key yields an
// empty slice.
func LoadContacts(ctx context.Context, kv KV) ([]contact.Contact, error) {
	b, ok, err := kv.Get(ctx, ContactsKey)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	if !ok || len(strings.TrimSpace(string(b))) == 0 {
		return []contact.Contact{}, nil
	}
	var out []contact.Contact
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	if out == nil {
		out = []contact.Contact{}
	}
	return out, nil
}

// SaveContacts writes the whole collection under ContactsKey.
func SaveContacts(ctx context.Context, kv KV, records []contact.Contact) error {
	if records == nil {
		records = []contact.Contact{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode contacts: %w", err)
	}
	if err := kv.Put(ctx, ContactsKey, b); err != nil {
		return fmt.Errorf("save contacts: %w", err)
	}
	return nil
}
