package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPushAppends(t *testing.T) {
	s := New("/index.html")

	for i, url := range []string{"/a.html", "/b.html", "/c.html"} {
		e := s.Push(url)
		if e.Committed {
			t.Error("pushed entry should start uncommitted")
		}
		if s.Len() != i+2 {
			t.Errorf("after %d pushes Len() = %d", i+1, s.Len())
		}
	}
	if s.Current().URL != "/c.html" {
		t.Errorf("Current() = %q", s.Current().URL)
	}
}

func TestReplaceOverwrites(t *testing.T) {
	s := New("/index.html")
	s.Push("/a.html")
	before := s.Current().Key

	e := s.Replace("/b.html")
	if s.Len() != 2 {
		t.Errorf("Replace changed Len() to %d", s.Len())
	}
	if s.Current().URL != "/b.html" || e.Key == before {
		t.Errorf("Replace did not overwrite current entry: %+v", s.Current())
	}
}

func TestMarkCommitted(t *testing.T) {
	s := New("/")
	e := s.Push("/a.html")

	if !s.MarkCommitted(e.Key) {
		t.Fatal("MarkCommitted returned false for a known key")
	}
	if !s.Current().Committed {
		t.Error("entry not committed")
	}
	if s.MarkCommitted("missing") {
		t.Error("MarkCommitted should fail for unknown keys")
	}
}

func TestBackForwardNotify(t *testing.T) {
	s := New("/")
	s.Push("/a.html")
	s.Push("/b.html")

	var got []string
	s.OnPopRequested(func(location string) {
		got = append(got, location)
	})

	if !s.Back() {
		t.Fatal("Back() returned false")
	}
	if !s.Go(-1) {
		t.Fatal("Go(-1) returned false")
	}
	if s.Back() {
		t.Error("Back() at the first entry should do nothing")
	}
	if !s.Go(2) {
		t.Fatal("Go(2) returned false")
	}

	want := []string{"/a.html", "/", "/b.html"}
	if len(got) != len(want) {
		t.Fatalf("handler calls = %v, expected %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, expected %q", i, got[i], want[i])
		}
	}
	if s.Len() != 3 {
		t.Errorf("moving the cursor changed Len() to %d", s.Len())
	}
}

func TestPushTruncatesForward(t *testing.T) {
	s := New("/")
	s.Push("/a.html")
	s.Push("/b.html")
	s.Back()

	s.Push("/c.html")
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, expected forward entry dropped", s.Len())
	}
	if s.Forward() {
		t.Error("Forward() should have nothing after a push")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "session.json")

	s := New("/")
	s.Push("/a.html")
	s.Push("/b.html")
	s.Back()

	if err := Save(path, s.Snapshot("http://example.com")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sess, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.Site != "http://example.com" {
		t.Errorf("site = %q", sess.Site)
	}

	restored, err := Restore(sess)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Len() != 3 || restored.Index() != 1 {
		t.Errorf("restored Len()=%d Index()=%d", restored.Len(), restored.Index())
	}
	if restored.Current().URL != "/a.html" {
		t.Errorf("restored Current() = %q", restored.Current().URL)
	}

	if err := Clear(path); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file still exists after Clear")
	}
	if err := Clear(path); err != nil {
		t.Errorf("second Clear failed: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load after Clear: expected not-exist, got %v", err)
	}
}

func TestRestoreRejectsBadSessions(t *testing.T) {
	if _, err := Restore(&Session{}); err == nil {
		t.Error("expected error for empty session")
	}
	if _, err := Restore(&Session{Entries: []Entry{{URL: "/"}}, Index: 3}); err == nil {
		t.Error("expected error for out of range index")
	}
}
