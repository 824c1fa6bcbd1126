package merge

import (
	"reflect"
	"sort"
	"testing"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

func rec(phone, company string) contact.Contact {
	return contact.Contact{Phone: phone, Company: company}
}

func TestMerge_Scenario(t *testing.T) {
	existing := []contact.Contact{rec("13900000000", "A")}
	incoming := []contact.Contact{rec("13900000000", "A"), rec("13911111111", "B")}
	res := Merge(existing, incoming)
	if res.Added != 1 {
		t.Fatalf("added = %d, want 1", res.Added)
	}
	if len(res.Updated) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Updated))
	}
	if res.Updated[1].Company != "B" {
		t.Fatalf("new record should be appended at the end: %+v", res.Updated)
	}
}

func TestMerge_SuppressesDuplicatesWithinBatch(t *testing.T) {
	incoming := []contact.Contact{rec("13900000000", "A"), rec("13900000000", "A"), rec("13900000000", "")}
	res := Merge(nil, incoming)
	if res.Added != 2 || len(res.Updated) != 2 {
		t.Fatalf("added=%d len=%d, want 2/2", res.Added, len(res.Updated))
	}
}

func TestMerge_KeepsOriginalOnDuplicate(t *testing.T) {
	existing := []contact.Contact{{Phone: "13900000000", Company: "A", Address: "old"}}
	incoming := []contact.Contact{{Phone: "13900000000", Company: "A", Address: "new", Email: "x@y"}}
	res := Merge(existing, incoming)
	if res.Added != 0 {
		t.Fatalf("added = %d", res.Added)
	}
	if res.Updated[0].Address != "old" || res.Updated[0].Email != "" {
		t.Fatalf("fields must not be merged between duplicates: %+v", res.Updated[0])
	}
}

func TestMerge_Idempotent(t *testing.T) {
	existing := []contact.Contact{rec("13900000000", "A")}
	batch := []contact.Contact{rec("13911111111", "B"), rec("13922222222", "C"), rec("13900000000", "A")}
	once := Merge(existing, batch)
	twice := Merge(once.Updated, batch)
	if twice.Added != 0 {
		t.Fatalf("second merge added %d, want 0", twice.Added)
	}
	if !reflect.DeepEqual(once.Updated, twice.Updated) {
		t.Fatalf("second merge changed the collection")
	}
}

func TestMerge_OrderIndependentKeySet(t *testing.T) {
	a := []contact.Contact{rec("13900000000", "A"), rec("13911111111", "B")}
	b := []contact.Contact{rec("13911111111", "B"), rec("13922222222", "C"), rec("13900000000", "A")}
	ab := Merge(Merge(nil, a).Updated, b).Updated
	ba := Merge(Merge(nil, b).Updated, a).Updated
	if !reflect.DeepEqual(keys(ab), keys(ba)) {
		t.Fatalf("key sets differ: %v vs %v", keys(ab), keys(ba))
	}
	// first-seen order is preserved
	if ab[0].Company != "A" || ba[0].Company != "B" {
		t.Fatalf("insertion order not preserved")
	}
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	existing := make([]contact.Contact, 1, 8)
	existing[0] = rec("13900000000", "A")
	_ = Merge(existing, []contact.Contact{rec("13911111111", "B")})
	if len(existing) != 1 || existing[:2][1].Phone != "" {
		t.Fatalf("existing backing array was written to")
	}
}

func TestInto_MatchesMerge(t *testing.T) {
	existing := []contact.Contact{rec("13900000000", "A")}
	batch := []contact.Contact{rec("13900000000", "A"), rec("13911111111", "B"), rec("13911111111", "B")}
	col := contact.NewCollection(existing)
	added := Into(col, batch)
	want := Merge(existing, batch)
	if added != want.Added || !reflect.DeepEqual(col.Records(), want.Updated) {
		t.Fatalf("Into diverged from Merge: added=%d want=%d", added, want.Added)
	}
}

func keys(cs []contact.Contact) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Phone+"|"+c.Company)
	}
	sort.Strings(out)
	return out
}
