package cache

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
)

type keyedRecord struct {
	ID string
}

func (r keyedRecord) CacheKey() string { return "record:" + r.ID }

func TestSerializeKey(t *testing.T) {
	ks := NewDefaultKeySerializer()

	tests := []struct {
		name string
		key  string
		args []any
		want string
	}{
		{name: "name only", key: "users", args: nil, want: "users"},
		{name: "nil argument", key: "users", args: []any{nil}, want: "users::nil"},
		{name: "scalar arguments", key: "users", args: []any{1, "ada", true}, want: "users::1::ada::true"},
		{
			name: "cache keyer wins over reflection",
			key:  "records",
			args: []any{keyedRecord{ID: "r1"}},
			want: "records::key:record:r1",
		},
		{
			name: "slice argument",
			key:  "batch",
			args: []any{[]int{1, 2}},
			want: "batch::slice[2]:{1,2}",
		},
		{
			name: "nil slice argument",
			key:  "batch",
			args: []any{[]int(nil)},
			want: "batch::slice:nil",
		},
		{
			name: "nil pointer argument",
			key:  "records",
			args: []any{(*struct{ ID int })(nil)},
			want: "records::nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ks.SerializeKey(tt.key, tt.args...); got != tt.want {
				t.Errorf("SerializeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerializeKey_MapOrderIsDeterministic(t *testing.T) {
	ks := NewDefaultKeySerializer()

	// Maps iterate in random order; repeated runs must still agree.
	m := map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}
	first := ks.SerializeKey("filters", m)
	for i := 0; i < 20; i++ {
		if got := ks.SerializeKey("filters", m); got != first {
			t.Fatalf("SerializeKey() is not deterministic: %q vs %q", got, first)
		}
	}
}

func TestSerializeKey_EquivalentMapsAgree(t *testing.T) {
	ks := NewDefaultKeySerializer()

	a := map[string]any{"page": 1, "limit": 10}
	b := map[string]any{"limit": 10, "page": 1}
	if ka, kb := ks.SerializeKey("q", a), ks.SerializeKey("q", b); ka != kb {
		t.Errorf("equal maps produced different keys: %q vs %q", ka, kb)
	}
}

func TestSerializeKey_StructFields(t *testing.T) {
	ks := NewDefaultKeySerializer()

	type query struct {
		Page  int
		Limit int
	}
	got := ks.SerializeKey("q", query{Page: 2, Limit: 50})
	if !strings.Contains(got, "Page:2") || !strings.Contains(got, "Limit:50") {
		t.Errorf("SerializeKey() = %q, want struct fields encoded by name", got)
	}
}

func TestSerializeKey_LongKeyDigested(t *testing.T) {
	ks := NewDefaultKeySerializer()

	long := strings.Repeat("x", MaxKeyLength+1)
	got := ks.SerializeKey("big", long)

	if len(got) > MaxKeyLength {
		t.Errorf("digested key length = %d, want <= %d", len(got), MaxKeyLength)
	}
	want := "big" + KeySeparator + fmt.Sprintf("x%016x", xxhash.Sum64String("big"+KeySeparator+long))
	if got != want {
		t.Errorf("SerializeKey() = %q, want %q", got, want)
	}
}

func TestSerializeKey_SelfReferentialValueTerminates(t *testing.T) {
	ks := NewDefaultKeySerializer()

	m := map[string]any{"id": 1}
	m["self"] = m

	got := ks.SerializeKey("cyclic", m)
	if got == "" {
		t.Fatalf("SerializeKey() returned an empty key")
	}
	if again := ks.SerializeKey("cyclic", m); again != got {
		t.Errorf("cyclic value key is not stable: %q vs %q", again, got)
	}
}
