package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/jamlist/internal/models"
	"github.com/desertthunder/jamlist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func track(id string) models.Track {
	return models.Track{ID: id, Name: "Song " + id, Artist: "Artist", Album: "Album", URI: "spotify:track:" + id}
}

func TestKVRepository(t *testing.T) {
	t.Run("Get missing", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		v, ok, err := repo.Get("absent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || v != "" {
			t.Errorf("expected missing key, got %q, %v", v, ok)
		}
	})

	t.Run("Set and overwrite", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set("spotify_access_token", "one"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set("spotify_access_token", "two"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		v, ok, err := repo.Get("spotify_access_token")
		if err != nil || !ok || v != "two" {
			t.Errorf("expected two, got %q, %v, %v", v, ok, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))
		for _, k := range []string{"a", "b", "c"} {
			repo.Set(k, k)
		}

		if err := repo.Delete("a", "b", "missing"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(); err != nil {
			t.Fatalf("empty delete should be a no-op: %v", err)
		}

		for k, want := range map[string]bool{"a": false, "b": false, "c": true} {
			if _, ok, _ := repo.Get(k); ok != want {
				t.Errorf("key %s present = %v, want %v", k, ok, want)
			}
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewKVRepository(db)
		db.Close()

		if _, _, err := repo.Get("a"); err == nil {
			t.Error("expected error on closed database")
		}
		if err := repo.Set("a", "b"); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestDraftRepository(t *testing.T) {
	t.Run("Add dedupes by id and keeps order", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))

		for _, id := range []string{"a", "b", "a", "c"} {
			if _, err := repo.Add(track(id)); err != nil {
				t.Fatalf("failed to add %s: %v", id, err)
			}
		}

		added, err := repo.Add(track("b"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if added {
			t.Error("duplicate add should report false")
		}

		tracks, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(tracks) != 3 || tracks[0].ID != "a" || tracks[1].ID != "b" || tracks[2].ID != "c" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
		if tracks[0] != track("a") {
			t.Errorf("fields not round tripped: %+v", tracks[0])
		}
	})

	t.Run("Add validates", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		if _, err := repo.Add(models.Track{ID: "x"}); err == nil {
			t.Error("expected validation error for track without uri")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		for _, id := range []string{"a", "b", "c"} {
			repo.Add(track(id))
		}

		removed, err := repo.Remove("b")
		if err != nil || !removed {
			t.Fatalf("expected removal, got %v, %v", removed, err)
		}
		if removed, _ := repo.Remove("b"); removed {
			t.Error("second removal should report false")
		}

		tracks, _ := repo.List()
		if len(tracks) != 2 || tracks[0].ID != "a" || tracks[1].ID != "c" {
			t.Errorf("unexpected tracks %+v", tracks)
		}

		// positions keep growing after a removal
		repo.Add(track("d"))
		tracks, _ = repo.List()
		if tracks[len(tracks)-1].ID != "d" {
			t.Errorf("new track should be last, got %+v", tracks)
		}
	})

	t.Run("Replace", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		repo.Add(track("old"))

		if err := repo.Replace([]models.Track{track("x"), track("y"), track("x")}); err != nil {
			t.Fatalf("failed to replace: %v", err)
		}

		tracks, _ := repo.List()
		if len(tracks) != 2 || tracks[0].ID != "x" || tracks[1].ID != "y" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("Replace rolls back on invalid track", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		repo.Add(track("keep"))

		if err := repo.Replace([]models.Track{track("x"), {ID: "bad"}}); err == nil {
			t.Fatal("expected validation error")
		}

		tracks, _ := repo.List()
		if len(tracks) != 1 || tracks[0].ID != "keep" {
			t.Errorf("draft should be unchanged, got %+v", tracks)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewDraftRepository(setupTestDB(t))
		repo.Add(track("a"))

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		tracks, err := repo.List()
		if err != nil || len(tracks) != 0 || tracks == nil {
			t.Errorf("expected empty non-nil list, got %#v, %v", tracks, err)
		}
	})
}

func TestNewStore(t *testing.T) {
	store := NewStore(setupTestDB(t))
	if store.KV == nil || store.Drafts == nil {
		t.Fatal("store should expose both repositories")
	}
}
