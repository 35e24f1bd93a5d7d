package strokelog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "strokes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for i, keys := range [][]string{{"S-"}, {"T-", "-Z"}, {"K-"}} {
		r := Record{ID: string(rune('a' + i)), Session: "s1", Time: base.Add(time.Duration(i) * time.Second), Keys: keys}
		if err := s.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Append(ctx, Record{ID: "other", Session: "s2", Time: base, Keys: []string{"*"}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if !reflect.DeepEqual(got[0].Keys, []string{"T-", "-Z"}) {
		t.Fatalf("keys=%v", got[0].Keys)
	}
	if !got[0].Time.Equal(base.Add(time.Second)) {
		t.Fatalf("time=%v", got[0].Time)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	r := Record{ID: "x", Session: "s", Time: time.Now(), Keys: []string{"S-"}}
	if err := s.Append(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, r); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}

func TestMarkUndone(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Append(ctx, Record{ID: "x", Session: "s", Time: time.Now(), Keys: []string{"S-"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkUndone(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Recent(ctx, "s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Undone {
		t.Fatalf("stroke not marked undone: %+v", got)
	}
	if err := s.MarkUndone(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestReopenKeepsStrokes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strokes.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Append(context.Background(), Record{ID: "x", Session: "s", Time: time.Now(), Keys: []string{"S-"}}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Recent(context.Background(), "s", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d strokes", len(got))
	}
}
