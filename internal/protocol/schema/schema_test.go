package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/sctl/internal/testutil/testlog"
)

func TestEntriesOrderedAndUnique(t *testing.T) {
	testlog.Start(t)
	es := Entries()
	if len(es) != 16 {
		t.Fatalf("expected 16 entries, got %d", len(es))
	}
	names := map[string]bool{}
	for i, e := range es {
		if i > 0 && es[i-1].Tag >= e.Tag {
			t.Fatalf("entries not ordered at %d", i)
		}
		if names[e.Name] {
			t.Fatalf("duplicate name %q", e.Name)
		}
		names[e.Name] = true
		byName, ok := LookupName(e.Name)
		if !ok || byName.Tag != e.Tag {
			t.Fatalf("LookupName(%q) = %+v, %v", e.Name, byName, ok)
		}
	}
	if es[0].Tag != Boot || es[0].Name != "boot" {
		t.Fatalf("boot must be tag 1, got %+v", es[0])
	}
}

func TestValidateShapes(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name  string
		tag   uint32
		value []byte
		ok    bool
	}{
		{"blob", Boot, []byte("Hello, World"), true},
		{"empty blob", Stdout, nil, true},
		{"exit status", Exit, []byte{0x55}, true},
		{"exit empty", Exit, nil, false},
		{"exit long", Exit, []byte{0, 1}, false},
		{"set", Set, []byte{1, 'k', 2, 'v', 'v'}, true},
		{"val empty key and value", Val, []byte{0, 0}, true},
		{"set missing value", Set, []byte{1, 'k'}, false},
		{"set trailing bytes", Set, []byte{1, 'k', 0, 9}, false},
		{"get key blob", Get, []byte("k"), true},
		{"unknown", 0x7f, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.tag, tc.value)
			if tc.ok && err != nil {
				t.Fatalf("validate: %v", err)
			}
			if !tc.ok {
				var ve ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Tag != tc.tag {
					t.Fatalf("unexpected validation error: %+v", ve)
				}
			}
		})
	}
}

func TestValidateUnknownTagReason(t *testing.T) {
	testlog.Start(t)
	err := Validate(0x99, nil)
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Reason != "unknown tag" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestSplitKeyValue(t *testing.T) {
	key, val, ok := SplitKeyValue([]byte{3, 'f', 'o', 'o', 2, 'h', 'i'})
	if !ok || string(key) != "foo" || string(val) != "hi" {
		t.Fatalf("got key=%q val=%q ok=%v", key, val, ok)
	}
	if _, _, ok := SplitKeyValue([]byte{5, 'a'}); ok {
		t.Fatalf("expected short key to fail")
	}
}
