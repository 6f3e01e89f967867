package websocket

import (
	"sort"
	"testing"

	"github.com/getmockd/wsbridge/pkg/transport/fake"
)

func TestRegistry_AddFind(t *testing.T) {
	r := NewRegistry()
	sock := fake.NewSocket("127.0.0.1:1")

	id := r.Add(sock)
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	conn := r.FindByID(id)
	if conn == nil {
		t.Fatal("FindByID returned nil after Add")
	}
	if conn.ID() != id || conn.Socket() != sock {
		t.Errorf("FindByID returned wrong connection: %s", conn.ID())
	}
	if conn.Name() != "" {
		t.Errorf("new connection name = %q, want empty", conn.Name())
	}
}

func TestRegistry_RemoveBySocket(t *testing.T) {
	r := NewRegistry()
	sock := fake.NewSocket("")
	id := r.Add(sock)

	gotID, ok := r.RemoveBySocket(sock)
	if !ok || gotID != id {
		t.Fatalf("RemoveBySocket = (%q, %v), want (%q, true)", gotID, ok, id)
	}
	if r.FindByID(id) != nil {
		t.Error("FindByID should return nil after RemoveBySocket")
	}
	if sock.IsClosed() {
		t.Error("RemoveBySocket must not close the socket")
	}

	// Unknown socket is a no-op.
	if _, ok := r.RemoveBySocket(fake.NewSocket("")); ok {
		t.Error("RemoveBySocket of unknown socket should report false")
	}
	if _, ok := r.RemoveBySocket(sock); ok {
		t.Error("second RemoveBySocket should report false")
	}
}

func TestRegistry_SwapRemoveKeepsIndex(t *testing.T) {
	r := NewRegistry()
	socks := make([]*fake.Socket, 5)
	ids := make([]string, 5)
	for i := range socks {
		socks[i] = fake.NewSocket("")
		ids[i] = r.Add(socks[i])
	}

	r.RemoveBySocket(socks[1])
	r.RemoveBySocket(socks[0])

	for _, i := range []int{2, 3, 4} {
		c := r.FindByID(ids[i])
		if c == nil || c.Socket() != socks[i] {
			t.Errorf("FindByID(%d) broken after swap-remove", i)
		}
	}
	if r.Count() != 3 {
		t.Errorf("Count = %d, want 3", r.Count())
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	a := r.Add(fake.NewSocket(""))
	b := r.Add(fake.NewSocket(""))

	if r.FindByName("alice") != nil {
		t.Error("FindByName on unset name should return nil")
	}
	if r.FindByName("") != nil {
		t.Error("FindByName(\"\") should return nil")
	}

	if !r.SetName(b, "alice") {
		t.Fatal("SetName returned false for known id")
	}
	c := r.FindByName("alice")
	if c == nil || c.ID() != b {
		t.Fatalf("FindByName(alice) = %v, want %s", c, b)
	}

	// Duplicate names resolve to the first in iteration order.
	r.SetName(a, "alice")
	if got := r.FindByName("alice"); got == nil || got.ID() != a {
		t.Errorf("FindByName with duplicate names should return first match")
	}

	if r.SetName("missing", "bob") {
		t.Error("SetName on unknown id should return false")
	}
}

func TestRegistry_CountMatchesAcceptsMinusCloses(t *testing.T) {
	r := NewRegistry()
	var open []*fake.Socket

	ops := "aaracaarrrcaaaar" // a = accept, r/c = close oldest
	for _, op := range ops {
		switch op {
		case 'a':
			s := fake.NewSocket("")
			r.Add(s)
			open = append(open, s)
		default:
			if len(open) > 0 {
				r.RemoveBySocket(open[0])
				open = open[1:]
			} else {
				r.RemoveBySocket(fake.NewSocket(""))
			}
		}
		if r.Count() != len(open) {
			t.Fatalf("after %q: Count = %d, want %d", op, r.Count(), len(open))
		}
		if r.Count() < 0 {
			t.Fatal("Count went negative")
		}
	}
}

func TestRegistry_IDsSnapshot(t *testing.T) {
	r := NewRegistry()
	want := []string{r.Add(fake.NewSocket("")), r.Add(fake.NewSocket(""))}

	got := r.IDs()
	r.Add(fake.NewSocket(""))

	if len(got) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(got))
	}
	sort.Strings(got)
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	id := r.Add(fake.NewSocket(""))
	r.Add(fake.NewSocket(""))

	if n := r.Clear(); n != 2 {
		t.Errorf("Clear = %d, want 2", n)
	}
	if r.Count() != 0 || r.FindByID(id) != nil {
		t.Error("registry not empty after Clear")
	}
	if n := r.Clear(); n != 0 {
		t.Errorf("second Clear = %d, want 0", n)
	}
}

func TestGenerateConnectionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateConnectionID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
