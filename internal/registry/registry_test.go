package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-forensics/internal/asset"
	"media-forensics/internal/mediatypes"
)

func newRecord(id string, created time.Time) *asset.Record {
	rec := asset.NewRecord(id, id+".jpg", mediatypes.KindImage, 42)
	rec.CreatedAt = created
	return rec
}

func writeTempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestPutGet(t *testing.T) {
	s := New()
	s.Put(newRecord("a", time.Now()))

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "a" {
		t.Errorf("ID = %q, want a", got.ID)
	}

	// Get hands out copies; mutating one must not touch the store.
	got.Name = "mutated"
	again, _ := s.Get("a")
	if again.Name == "mutated" {
		t.Error("Get returned a live pointer, want a copy")
	}
}

func TestGetMissing(t *testing.T) {
	s := New()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Put(newRecord("old", base))
	s.Put(newRecord("new", base.Add(time.Hour)))
	s.Put(newRecord("mid", base.Add(time.Minute)))

	got := s.List()
	if len(got) != 3 {
		t.Fatalf("List returned %d records, want 3", len(got))
	}
	wantOrder := []string{"new", "mid", "old"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("List()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestListTieBreaksOnID(t *testing.T) {
	s := New()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Put(newRecord("b", ts))
	s.Put(newRecord("a", ts))

	got := s.List()
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("tie order = [%q %q], want [a b]", got[0].ID, got[1].ID)
	}
}

func TestUpdate(t *testing.T) {
	s := New()
	s.Put(newRecord("a", time.Now()))

	err := s.Update("a", func(r *asset.Record) {
		r.AnalysisState = asset.StateLoading
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := s.Get("a")
	if got.AnalysisState != asset.StateLoading {
		t.Errorf("state = %q, want loading", got.AnalysisState)
	}
}

func TestUpdateAfterDeleteDiscarded(t *testing.T) {
	s := New()
	s.Put(newRecord("a", time.Now()))
	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	called := false
	err := s.Update("a", func(r *asset.Record) { called = true })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update after delete = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("update fn ran against a deleted record")
	}
}

func TestDeleteReleasesOwnedFiles(t *testing.T) {
	s := New()
	rec := newRecord("a", time.Now())
	rec.PreviewPath = writeTempFile(t, "preview.jpg")
	rec.SourcePath = writeTempFile(t, "source.png")
	s.Put(rec)

	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, p := range []string{rec.PreviewPath, rec.SourcePath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still on disk after delete", p)
		}
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after delete, want 0", s.Len())
	}
}

func TestDeleteMissing(t *testing.T) {
	s := New()
	if err := s.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
}

func TestConcurrentDeleteReleasesOnce(t *testing.T) {
	s := New()
	rec := newRecord("a", time.Now())
	rec.SourcePath = writeTempFile(t, "source.png")
	s.Put(rec)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Delete("a")
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrNotFound) {
			t.Errorf("unexpected delete error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d deletes succeeded, want exactly 1", succeeded)
	}
}

func TestReleasePathsIgnoresMissing(t *testing.T) {
	// Must not panic or log fatally for already-gone files.
	ReleasePaths([]string{filepath.Join(t.TempDir(), "never-existed.jpg")})
}

func TestCountByState(t *testing.T) {
	s := New()
	now := time.Now()
	idle := newRecord("a", now)
	loading := newRecord("b", now)
	loading.AnalysisState = asset.StateLoading
	done := newRecord("c", now)
	done.AnalysisState = asset.StateComplete
	done2 := newRecord("d", now)
	done2.AnalysisState = asset.StateComplete
	for _, r := range []*asset.Record{idle, loading, done, done2} {
		s.Put(r)
	}

	counts := s.CountByState()
	if counts[asset.StateIdle] != 1 || counts[asset.StateLoading] != 1 || counts[asset.StateComplete] != 2 {
		t.Errorf("CountByState = %v", counts)
	}
}
