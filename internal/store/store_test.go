package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()
	sq, err := OpenSQLite(filepath.Join(dir, "db", "contacts.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]KV{
		"file":   &FileStore{Dir: filepath.Join(dir, "files")},
		"sqlite": sq,
	}
}

func TestKV_GetPut(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("missing key: ok=%v err=%v", ok, err)
			}
			if err := kv.Put(ctx, "k", []byte("v1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := kv.Put(ctx, "k", []byte("v2")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, ok, err := kv.Get(ctx, "k")
			if err != nil || !ok || string(got) != "v2" {
				t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
			}
			if err := kv.Put(ctx, "../escape", []byte("x")); err == nil {
				t.Fatalf("expected invalid key error")
			}
		})
	}
}

func TestContacts_RoundTrip(t *testing.T) {
	ctx := context.Background()
	want := []contact.Contact{
		{Company: "甲公司", Phone: "13912345678", ExtraPhones: 1, Address: "苏州", Email: "a@b.c", RegCapital: "500万人民币", Timestamp: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{Phone: "13800000000", Timestamp: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)},
	}
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := LoadContacts(ctx, kv)
			if err != nil || len(empty) != 0 {
				t.Fatalf("initial load = %v, %v", empty, err)
			}
			if err := SaveContacts(ctx, kv, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := LoadContacts(ctx, kv)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %+v\nwant %+v", got, want)
			}
			if err := SaveContacts(ctx, kv, nil); err != nil {
				t.Fatalf("save empty: %v", err)
			}
			raw, _, _ := kv.Get(ctx, ContactsKey)
			if string(raw) != "[]" {
				t.Fatalf("cleared collection should persist as [], got %q", raw)
			}
		})
	}
}

func TestLoadContacts_ExtensionLayout(t *testing.T) {
	ctx := context.Background()
	kv := &FileStore{Dir: t.TempDir()}
	raw := `[{"company":"甲公司","phone":"13912345678","extraPhones":2,"address":"","email":"","regCapital":"","timestamp":"2024-05-01T08:30:00.000Z"}]`
	if err := kv.Put(ctx, ContactsKey, []byte(raw)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := LoadContacts(ctx, kv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ExtraPhones != 2 || got[0].Timestamp.Hour() != 8 {
		t.Fatalf("unexpected decode: %+v", got)
	}
}

func TestFileStore_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s := &FileStore{Dir: dir, StrictPerms: true}
	if err := s.Put(context.Background(), ContactsKey, []byte("[]")); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(filepath.Join(dir, ContactsKey+".json"))
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("file mode = %o, want 0600", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("redis", "x", false); err == nil {
		t.Fatalf("expected error")
	}
}
