package uuid

import (
	"sort"
	"testing"
)

func TestNew(t *testing.T) {
	id := New()
	if !IsValid(id) {
		t.Fatalf("expected valid uuid, got %q", id)
	}
	if id[14] != '7' {
		t.Errorf("expected version 7, got %q", id)
	}
}

func TestNew_Ordered(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = New()
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("expected ids generated in sequence to sort in creation order")
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid uuid")
	}
	got, err := Parse("0190F5A2-7B3C-7D4E-8F90-A1B2C3D4E5F6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190f5a2-7b3c-7d4e-8f90-a1b2c3d4e5f6" {
		t.Errorf("expected lower-case canonical form, got %s", got)
	}
}
