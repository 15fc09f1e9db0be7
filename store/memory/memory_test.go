package memory

import (
	"bytes"
	"testing"

	"kvperf/store"
)

func openCursor(t *testing.T, s *Store) store.Cursor {
	t.Helper()
	sess, err := s.OpenSession()
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	cur, err := sess.OpenCursor("test")
	if err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}
	return cur
}

func TestInsertAndSearch(t *testing.T) {
	s := NewStore()
	cur := openCursor(t, s)

	cur.SetKey([]byte("00000001"))
	cur.SetValue([]byte("hello"))
	if res := cur.Insert(); res.Status != store.StatusOK {
		t.Fatalf("Insert: %v", res.Err)
	}

	cur.SetKey([]byte("00000001"))
	if res := cur.Search(); res.Status != store.StatusOK {
		t.Fatalf("Search: %v", res.Err)
	}
	if !bytes.Equal(cur.Value(), []byte("hello")) {
		t.Errorf("Value = %q, want hello", cur.Value())
	}

	cur.SetKey([]byte("00000002"))
	if res := cur.Search(); res.Status != store.StatusNotFound {
		t.Errorf("Search on a missing key returned %v", res.Status)
	}
}

func TestInsertOverwrites(t *testing.T) {
	s := NewStore()
	cur := openCursor(t, s)

	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("v"))
	if res := cur.Insert(); res.Status != store.StatusOK {
		t.Fatalf("Insert: %v", res.Err)
	}
	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("v2"))
	if res := cur.Insert(); res.Status != store.StatusOK {
		t.Fatalf("repeated Insert: %v", res.Err)
	}

	cur.SetKey([]byte("k"))
	cur.Search()
	if !bytes.Equal(cur.Value(), []byte("v2")) {
		t.Errorf("Value = %q, want the overwritten v2", cur.Value())
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestUpdate(t *testing.T) {
	s := NewStore()
	cur := openCursor(t, s)

	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("old"))
	if res := cur.Insert(); res.Status != store.StatusOK {
		t.Fatalf("Insert: %v", res.Err)
	}

	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("new"))
	if res := cur.Update(); res.Status != store.StatusOK {
		t.Fatalf("Update: %v", res.Err)
	}
	cur.SetKey([]byte("k"))
	cur.Search()
	if !bytes.Equal(cur.Value(), []byte("new")) {
		t.Errorf("Value = %q, want new", cur.Value())
	}

	cur.SetKey([]byte("missing"))
	cur.SetValue([]byte("x"))
	if res := cur.Update(); res.Status != store.StatusNotFound {
		t.Errorf("Update on a missing key returned %v, want not found", res.Status)
	}
}

func TestPrevFindsLastKey(t *testing.T) {
	s := NewStore()
	cur := openCursor(t, s)

	if res := cur.Prev(); res.Status != store.StatusNotFound {
		t.Errorf("Prev on an empty store returned %v, want not found", res.Status)
	}

	for _, k := range []string{"00000003", "00000001", "00000002"} {
		cur.SetKey([]byte(k))
		cur.SetValue([]byte("v"))
		if res := cur.Insert(); res.Status != store.StatusOK {
			t.Fatalf("Insert %s: %v", k, res.Err)
		}
	}
	if res := cur.Prev(); res.Status != store.StatusOK {
		t.Fatalf("Prev: %v", res.Err)
	}
	if got := string(cur.Key()); got != "00000003" {
		t.Errorf("Prev landed on %q, want 00000003", got)
	}
}

// Search hands out a copy, so callers scribbling on the returned value
// must not corrupt the stored record.
func TestSearchCopiesValue(t *testing.T) {
	s := NewStore()
	cur := openCursor(t, s)

	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("abc"))
	cur.Insert()

	cur.SetKey([]byte("k"))
	cur.Search()
	cur.Value()[0] = 'z'

	cur.SetKey([]byte("k"))
	cur.Search()
	if !bytes.Equal(cur.Value(), []byte("abc")) {
		t.Errorf("stored value changed to %q", cur.Value())
	}
}

func TestReopenKeepsData(t *testing.T) {
	s := NewStore()
	cur := openCursor(t, s)
	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("v"))
	cur.Insert()

	conn, err := s.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	conn, err = s.Open()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sess, err := conn.OpenSession()
	if err != nil {
		t.Fatal(err)
	}
	cur2, err := sess.OpenCursor("test")
	if err != nil {
		t.Fatal(err)
	}
	cur2.SetKey([]byte("k"))
	if res := cur2.Search(); res.Status != store.StatusOK {
		t.Errorf("record lost across a close and reopen")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
