package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/desertthunder/linesync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()
	expiresAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	t.Run("LoadEmpty", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		cred, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if !cred.IsZero() {
			t.Errorf("expected zero credential, got %+v", cred)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		want := models.Credential{AccessToken: "T1", RefreshToken: "R1", ExpiresAt: expiresAt}

		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
			t.Errorf("expected %+v, got %+v", want, got)
		}
		if !got.ExpiresAt.Equal(want.ExpiresAt) {
			t.Errorf("expected expiry %v, got %v", want.ExpiresAt, got.ExpiresAt)
		}
	})

	t.Run("SaveReplacesPreviousKeys", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		if err := repo.Save(ctx, models.Credential{AccessToken: "T1", RefreshToken: "R1", ExpiresAt: expiresAt}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := repo.Save(ctx, models.Credential{AccessToken: "T2"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got.AccessToken != "T2" || got.RefreshToken != "" || !got.ExpiresAt.IsZero() {
			t.Errorf("expected only access token T2, got %+v", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		if err := repo.Save(ctx, models.Credential{AccessToken: "T1", RefreshToken: "R1"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("second clear should be a no-op: %v", err)
		}

		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if !got.IsZero() || got.CanRefresh() {
			t.Errorf("expected empty credential after clear, got %+v", got)
		}
	})

	t.Run("InvalidStoredExpiry", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialRepository(db)

		if _, err := db.Exec(`INSERT INTO credentials (key, value) VALUES ('expires_at', 'tomorrow')`); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
		if _, err := repo.Load(ctx); err == nil {
			t.Fatal("expected error for unparsable expiry")
		}
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialRepository(db)
		db.Close()

		if _, err := repo.Load(ctx); err == nil {
			t.Error("expected load error on closed database")
		}
		if err := repo.Save(ctx, models.Credential{AccessToken: "T"}); err == nil {
			t.Error("expected save error on closed database")
		}
	})
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	refreshedAt := time.Date(2026, 7, 8, 9, 10, 11, 0, time.UTC)

	calls := []models.CallRecord{{ID: "c1", Number: "+15550001", Direction: models.DirectionInbound}}
	items, err := json.Marshal(calls)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	t.Run("GetMissing", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))

		s, err := repo.Get(ctx, "calls")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != nil {
			t.Errorf("expected nil snapshot, got %+v", s)
		}
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))

		if err := repo.Save(ctx, models.Snapshot{Resource: "calls", Items: items, ItemCount: 1, RefreshedAt: refreshedAt}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		s, err := repo.Get(ctx, "calls")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if s == nil || s.ItemCount != 1 || !s.RefreshedAt.Equal(refreshedAt) {
			t.Fatalf("unexpected snapshot: %+v", s)
		}

		var got []models.CallRecord
		if err := json.Unmarshal(s.Items, &got); err != nil {
			t.Fatalf("failed to decode items: %v", err)
		}
		if len(got) != 1 || got[0].ID != "c1" {
			t.Errorf("expected call c1, got %+v", got)
		}
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))

		if err := repo.Save(ctx, models.Snapshot{Resource: "calls", Items: items, ItemCount: 1, RefreshedAt: refreshedAt}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := repo.Save(ctx, models.Snapshot{Resource: "calls", ItemCount: 0, RefreshedAt: refreshedAt.Add(time.Hour)}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		s, err := repo.Get(ctx, "calls")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if string(s.Items) != "[]" || s.ItemCount != 0 {
			t.Errorf("expected empty overwrite, got %+v", s)
		}
	})

	t.Run("ListAndClear", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))

		for _, resource := range []string{"recordings", "calls"} {
			if err := repo.Save(ctx, models.Snapshot{Resource: resource, RefreshedAt: refreshedAt}); err != nil {
				t.Fatalf("failed to save %s: %v", resource, err)
			}
		}

		list, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(list) != 2 || list[0].Resource != "calls" {
			t.Errorf("expected calls then recordings, got %d snapshots", len(list))
		}

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		list, err = repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no snapshots after clear, got %d", len(list))
		}
	})

	t.Run("MissingResource", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))
		if err := repo.Save(ctx, models.Snapshot{}); err == nil {
			t.Error("expected error for empty resource")
		}
	})
}
