package unionfind

import "testing"

func TestUnionFind(t *testing.T) {
	u := New[int]()

	u.Union(1, 2)
	u.Union(3, 4)
	u.Union(2, 4)
	u.Add(5)

	if !u.Same(1, 3) {
		t.Error("1 and 3 should be joined through 2-4")
	}
	if u.Same(1, 5) {
		t.Error("5 should stay alone")
	}
	if got := len(u.Classes()); got != 2 {
		t.Errorf("Classes() has %d classes, want 2", got)
	}
	if u.Len() != 5 {
		t.Errorf("Len() = %d, want 5", u.Len())
	}
}

func TestUnionInto(t *testing.T) {
	u := New[string]()

	u.Union("a", "b")
	u.Union("b", "c")
	if r := u.UnionInto("pin", "c"); r != "pin" {
		t.Errorf("UnionInto representative = %q, want pin", r)
	}
	for _, x := range []string{"a", "b", "c"} {
		if got := u.Find(x); got != "pin" {
			t.Errorf("Find(%q) = %q, want pin", x, got)
		}
	}

	// a later plain union must not displace the pinned representative when
	// merging a singleton
	u.Union("pin", "d")
	if got := u.Find("d"); got != "pin" {
		t.Errorf("Find(d) = %q, want pin", got)
	}
}
