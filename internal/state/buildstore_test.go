package state

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *BuildStore {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := Open(ctx, Config{
		Path: filepath.Join(t.TempDir(), "state.db"),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	store, err := NewBuildStore(ctx, db)
	if err != nil {
		t.Fatalf("NewBuildStore failed: %v", err)
	}
	return store
}

func TestBuildStoreUpsertGet(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if _, found, err := store.GetByKey(ctx, "missing"); err != nil || found {
		t.Fatalf("GetByKey on empty store = (found=%v, err=%v)", found, err)
	}

	in := Build{
		InputsKey:  "abc123",
		ImageID:    "sha256:deadbeef",
		Tag:        "projects_subbot-abc123",
		Project:    "/home/user/projects/subbot",
		BaseImage:  "python:3.11-slim",
		Entrypoint: "main.py",
	}
	if err := store.Upsert(ctx, in); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, found, err := store.GetByKey(ctx, "abc123")
	if err != nil || !found {
		t.Fatalf("GetByKey = (found=%v, err=%v)", found, err)
	}
	if got.ImageID != in.ImageID || got.Tag != in.Tag || got.BaseImage != in.BaseImage || got.Entrypoint != in.Entrypoint {
		t.Fatalf("GetByKey returned %+v, want fields of %+v", got, in)
	}
	if got.CreatedAt.IsZero() || got.LastUsed.IsZero() {
		t.Fatalf("timestamps not set: %+v", got)
	}

	// Upsert on the same key replaces the image instead of adding a row.
	in.ImageID = "sha256:cafebabe"
	if err := store.Upsert(ctx, in); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, _, err = store.GetByKey(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByKey after replace failed: %v", err)
	}
	if got.ImageID != "sha256:cafebabe" {
		t.Fatalf("image not replaced, got %s", got.ImageID)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List returned %d rows, want 1", len(all))
	}
}

func TestBuildStoreDelete(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"k1", "k2", "k3"} {
		err := store.Upsert(ctx, Build{
			InputsKey:  key,
			ImageID:    "img-" + key,
			Tag:        "tag-" + key,
			Project:    "/p",
			BaseImage:  "python:3.12-slim",
			Entrypoint: "bot.py",
		})
		if err != nil {
			t.Fatalf("Upsert(%s) failed: %v", key, err)
		}
	}

	if err := store.Delete(ctx, "k2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := store.GetByKey(ctx, "k2"); found {
		t.Fatal("k2 still present after Delete")
	}

	n, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("DeleteAll removed %d rows, want 2", n)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("List after DeleteAll returned %d rows", len(all))
	}
}
