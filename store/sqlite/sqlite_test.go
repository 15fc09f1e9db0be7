package sqlite

import (
	"bytes"
	"testing"

	"kvperf/store"
)

func openTestCursor(t *testing.T) (store.Connection, store.Session, store.Cursor) {
	t.Helper()
	o := &Opener{Home: t.TempDir(), Table: "test"}
	conn, err := o.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	sess, err := conn.OpenSession()
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	cur, err := sess.OpenCursor("test")
	if err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}
	return conn, sess, cur
}

func TestCursorOperations(t *testing.T) {
	_, _, cur := openTestCursor(t)

	cur.SetKey([]byte("00000001"))
	if res := cur.Search(); res.Status != store.StatusNotFound {
		t.Fatalf("Search on an empty table returned %v", res.Status)
	}

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

	cur.SetKey([]byte("00000001"))
	cur.SetValue([]byte("world"))
	if res := cur.Update(); res.Status != store.StatusOK {
		t.Fatalf("Update: %v", res.Err)
	}
	cur.SetKey([]byte("00000001"))
	cur.Search()
	if !bytes.Equal(cur.Value(), []byte("world")) {
		t.Errorf("Value after update = %q, want world", cur.Value())
	}
}

func TestInsertOverwrites(t *testing.T) {
	_, _, cur := openTestCursor(t)

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
	if res := cur.Search(); res.Status != store.StatusOK {
		t.Fatalf("Search: %v", res.Err)
	}
	if !bytes.Equal(cur.Value(), []byte("v2")) {
		t.Errorf("Value = %q, want the overwritten v2", cur.Value())
	}
}

func TestUpdateMissingKey(t *testing.T) {
	_, _, cur := openTestCursor(t)

	cur.SetKey([]byte("missing"))
	cur.SetValue([]byte("v"))
	if res := cur.Update(); res.Status != store.StatusNotFound {
		t.Errorf("Update on a missing key returned %v, want not found", res.Status)
	}
}

func TestPrevReturnsLastKey(t *testing.T) {
	_, _, cur := openTestCursor(t)

	if res := cur.Prev(); res.Status != store.StatusNotFound {
		t.Errorf("Prev on an empty table returned %v, want not found", res.Status)
	}

	for _, k := range []string{"00000002", "00000009", "00000005"} {
		cur.SetKey([]byte(k))
		cur.SetValue([]byte("v"))
		if res := cur.Insert(); res.Status != store.StatusOK {
			t.Fatalf("Insert %s: %v", k, res.Err)
		}
	}
	if res := cur.Prev(); res.Status != store.StatusOK {
		t.Fatalf("Prev: %v", res.Err)
	}
	if got := string(cur.Key()); got != "00000009" {
		t.Errorf("Prev landed on %q, want 00000009", got)
	}
}

func TestTransactionBatch(t *testing.T) {
	_, sess, cur := openTestCursor(t)

	if err := sess.BeginTransaction(); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	for _, k := range []string{"a", "b", "c"} {
		cur.SetKey([]byte(k))
		cur.SetValue([]byte("v"))
		if res := cur.Insert(); res.Status != store.StatusOK {
			t.Fatalf("Insert %s: %v", k, res.Err)
		}
	}
	if err := sess.CommitTransaction(); err != nil {
		t.Fatalf("CommitTransaction: %v", err)
	}

	cur.SetKey([]byte("b"))
	if res := cur.Search(); res.Status != store.StatusOK {
		t.Errorf("record not visible after commit: %v", res.Status)
	}
}

func TestCheckpoint(t *testing.T) {
	_, sess, cur := openTestCursor(t)

	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("v"))
	if res := cur.Insert(); res.Status != store.StatusOK {
		t.Fatalf("Insert: %v", res.Err)
	}
	if err := sess.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	home := t.TempDir()
	o := &Opener{Home: home, Table: "test"}

	conn, err := o.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := conn.OpenSession()
	if err != nil {
		t.Fatal(err)
	}
	cur, err := sess.OpenCursor("test")
	if err != nil {
		t.Fatal(err)
	}
	cur.SetKey([]byte("k"))
	cur.SetValue([]byte("v"))
	if res := cur.Insert(); res.Status != store.StatusOK {
		t.Fatalf("Insert: %v", res.Err)
	}
	sess.Close()
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	conn, err = o.Open()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer conn.Close()
	sess, err = conn.OpenSession()
	if err != nil {
		t.Fatal(err)
	}
	cur, err = sess.OpenCursor("test")
	if err != nil {
		t.Fatal(err)
	}
	cur.SetKey([]byte("k"))
	if res := cur.Search(); res.Status != store.StatusOK {
		t.Errorf("record lost across a close and reopen: %v", res.Status)
	}
}
