package docstore_test

import (
	"errors"
	"testing"

	"github.com/lenslove/academy/internal/docstore"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, store docstore.Store) {
	t.Helper()
	ctx := t.Context()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "users", "nobody")
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("create then get", func(t *testing.T) {
		err := store.Create(ctx, "users", "alice", docstore.Document{
			"xp":                0,
			"completed_lessons": []string{},
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		doc, err := store.Get(ctx, "users", "alice")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if xp, ok := doc.Int("xp"); !ok || xp != 0 {
			t.Errorf("xp = %v (ok=%v), want 0", xp, ok)
		}
		if lessons, ok := doc.Strings("completed_lessons"); !ok || len(lessons) != 0 {
			t.Errorf("completed_lessons = %v (ok=%v), want empty", lessons, ok)
		}
	})

	t.Run("create existing", func(t *testing.T) {
		err := store.Create(ctx, "users", "alice", docstore.Document{"xp": 99})
		if !errors.Is(err, docstore.ErrAlreadyExists) {
			t.Fatalf("Create() error = %v, want ErrAlreadyExists", err)
		}
		doc, _ := store.Get(ctx, "users", "alice")
		if xp, _ := doc.Int("xp"); xp != 0 {
			t.Errorf("xp = %d after rejected create, want 0", xp)
		}
	})

	t.Run("update merges fields", func(t *testing.T) {
		if err := store.Set(ctx, "users", "bob", docstore.Document{"xp": 0, "nickname": "bobby"}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		err := store.Update(ctx, "users", "bob", docstore.Document{
			"xp":                10,
			"completed_lessons": []string{"Lesson 1: Golden Hour"},
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		doc, err := store.Get(ctx, "users", "bob")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if xp, _ := doc.Int("xp"); xp != 10 {
			t.Errorf("xp = %d, want 10", xp)
		}
		if doc["nickname"] != "bobby" {
			t.Errorf("nickname = %v, want untouched field", doc["nickname"])
		}
		lessons, _ := doc.Strings("completed_lessons")
		if len(lessons) != 1 || lessons[0] != "Lesson 1: Golden Hour" {
			t.Errorf("completed_lessons = %v", lessons)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		err := store.Update(ctx, "users", "ghost", docstore.Document{"xp": 10})
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Update() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set replaces", func(t *testing.T) {
		if err := store.Set(ctx, "users", "bob", docstore.Document{"xp": 20}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		doc, _ := store.Get(ctx, "users", "bob")
		if _, ok := doc["nickname"]; ok {
			t.Error("Set() should replace the whole document")
		}
	})

	t.Run("collections are isolated", func(t *testing.T) {
		_, err := store.Get(ctx, "mentors", "alice")
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		if _, err := store.Get(ctx, "users", ""); err == nil {
			t.Error("Get() should reject an empty key")
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
