package progress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lenslove/academy/internal/docstore"
	"github.com/lenslove/academy/internal/progress"
)

func TestStore_LoadInitializesOnce(t *testing.T) {
	docs := docstore.NewRecorder(nil)
	store := progress.NewStore(docs, "")
	ctx := t.Context()

	rec, err := store.Load(ctx, "my_wife")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.XP != 0 || len(rec.CompletedLessons) != 0 {
		t.Errorf("Load() = %+v, want default record", rec)
	}
	if rec.CompletedLessons == nil {
		t.Error("CompletedLessons should be an empty list, not nil")
	}

	writes := docs.Writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1 initialization write", len(writes))
	}
	if writes[0].Op != "create" || writes[0].Collection != "users" || writes[0].Key != "my_wife" {
		t.Errorf("write = %+v, want create users/my_wife", writes[0])
	}

	for range 3 {
		if _, err := store.Load(ctx, "my_wife"); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	if got := len(docs.Writes()); got != 1 {
		t.Errorf("writes after reloads = %d, want still 1", got)
	}
}

func TestStore_LoadExistingVerbatim(t *testing.T) {
	docs := docstore.NewRecorder(nil)
	ctx := t.Context()
	_ = docs.Store.Set(ctx, "users", "my_wife", docstore.Document{
		"xp":                20,
		"completed_lessons": []string{"Lesson 1: Golden Hour", "Lesson 2: Window Light"},
	})

	rec, err := progress.NewStore(docs, "users").Load(ctx, "my_wife")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.XP != 20 || len(rec.CompletedLessons) != 2 || rec.CompletedLessons[1] != "Lesson 2: Window Light" {
		t.Errorf("Load() = %+v", rec)
	}
	if len(docs.Writes()) != 0 {
		t.Error("loading an existing document should not write")
	}
}

func TestStore_LoadPartialDocument(t *testing.T) {
	tests := []struct {
		name        string
		doc         docstore.Document
		wantXP      int
		wantLessons int
	}{
		{"missing xp", docstore.Document{"completed_lessons": []string{"a"}}, 0, 1},
		{"missing lessons", docstore.Document{"xp": 30}, 30, 0},
		{"empty", docstore.Document{}, 0, 0},
		{"wrong types", docstore.Document{"xp": "lots", "completed_lessons": "a"}, 0, 0},
		{"negative xp", docstore.Document{"xp": -10}, 0, 0},
		{"duplicate lessons", docstore.Document{"xp": 10, "completed_lessons": []string{"a", "a"}}, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := docstore.NewMemoryStore()
			ctx := t.Context()
			_ = docs.Set(ctx, "users", "u", tt.doc)

			rec, err := progress.NewStore(docs, "users").Load(ctx, "u")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if rec.XP != tt.wantXP || len(rec.CompletedLessons) != tt.wantLessons {
				t.Errorf("Load() = %+v, want xp %d and %d lessons", rec, tt.wantXP, tt.wantLessons)
			}
			if rec.CompletedLessons == nil {
				t.Error("CompletedLessons should never be nil")
			}
		})
	}
}

func TestStore_Save(t *testing.T) {
	docs := docstore.NewRecorder(nil)
	store := progress.NewStore(docs, "users")
	ctx := t.Context()

	_ = docs.Store.Set(ctx, "users", "u", docstore.Document{"xp": 0, "completed_lessons": []string{}, "name": "kept"})

	rec := progress.NewRecord().Complete("Lesson 1: Golden Hour")
	if err := store.Save(ctx, "u", rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	writes := docs.Writes()
	if len(writes) != 1 || writes[0].Op != "update" {
		t.Fatalf("writes = %+v, want one update", writes)
	}

	doc, _ := docs.Store.Get(ctx, "users", "u")
	if xp, _ := doc.Int("xp"); xp != 10 {
		t.Errorf("stored xp = %d, want 10", xp)
	}
	if doc["name"] != "kept" {
		t.Error("Save() should be a partial update")
	}
}

func TestStore_ReadDoesNotWrite(t *testing.T) {
	docs := docstore.NewRecorder(nil)
	store := progress.NewStore(docs, "")
	ctx := t.Context()

	rec, err := store.Read(ctx, "my_wife")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rec.XP != 0 || rec.CompletedLessons == nil || len(rec.CompletedLessons) != 0 {
		t.Errorf("Read() = %+v, want default record", rec)
	}
	if got := len(docs.Writes()); got != 0 {
		t.Errorf("writes = %d, want none for a missing document", got)
	}

	_ = docs.Store.Set(ctx, "users", "my_wife", docstore.Document{
		"xp":                10,
		"completed_lessons": []string{"Lesson 1: Golden Hour"},
	})
	rec, err = store.Read(ctx, "my_wife")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rec.XP != 10 || !rec.Completed("Lesson 1: Golden Hour") {
		t.Errorf("Read() = %+v, want stored record", rec)
	}

	docs.FailReads(errors.New("connection refused"))
	if _, err := store.Read(ctx, "my_wife"); !errors.Is(err, progress.ErrStoreUnavailable) {
		t.Errorf("Read() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := store.Read(ctx, ""); !errors.Is(err, progress.ErrInvalidUser) {
		t.Errorf("Read() error = %v, want ErrInvalidUser", err)
	}
}

func TestStore_Unavailable(t *testing.T) {
	boom := errors.New("connection refused")
	ctx := t.Context()

	t.Run("load", func(t *testing.T) {
		docs := docstore.NewRecorder(nil)
		docs.FailReads(boom)
		_, err := progress.NewStore(docs, "").Load(ctx, "u")
		if !errors.Is(err, progress.ErrStoreUnavailable) || !errors.Is(err, boom) {
			t.Errorf("Load() error = %v, want ErrStoreUnavailable wrapping cause", err)
		}
	})

	t.Run("initialize", func(t *testing.T) {
		docs := docstore.NewRecorder(nil)
		docs.FailWrites(boom)
		_, err := progress.NewStore(docs, "").Load(ctx, "u")
		if !errors.Is(err, progress.ErrStoreUnavailable) {
			t.Errorf("Load() error = %v, want ErrStoreUnavailable", err)
		}
	})

	t.Run("save", func(t *testing.T) {
		docs := docstore.NewRecorder(nil)
		store := progress.NewStore(docs, "")
		_, _ = store.Load(ctx, "u")
		docs.FailWrites(boom)
		if err := store.Save(ctx, "u", progress.NewRecord()); !errors.Is(err, progress.ErrStoreUnavailable) {
			t.Errorf("Save() error = %v, want ErrStoreUnavailable", err)
		}
	})

	t.Run("save missing document", func(t *testing.T) {
		err := progress.NewStore(docstore.NewMemoryStore(), "").Save(ctx, "ghost", progress.NewRecord())
		if !errors.Is(err, progress.ErrStoreUnavailable) || !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("Save() error = %v", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		docs := docstore.NewRecorder(nil)
		docs.FailReads(boom)
		if err := progress.NewStore(docs, "").Ping(ctx); !errors.Is(err, progress.ErrStoreUnavailable) {
			t.Errorf("Ping() error = %v", err)
		}
	})
}

func TestStore_RejectsEmptyUser(t *testing.T) {
	store := progress.NewStore(docstore.NewMemoryStore(), "")
	ctx := t.Context()

	if _, err := store.Load(ctx, " "); !errors.Is(err, progress.ErrInvalidUser) {
		t.Errorf("Load() error = %v, want ErrInvalidUser", err)
	}
	if err := store.Save(ctx, "", progress.NewRecord()); !errors.Is(err, progress.ErrInvalidUser) {
		t.Errorf("Save() error = %v, want ErrInvalidUser", err)
	}
}

// createRace simulates another writer creating the document between Get and Create.
type createRace struct {
	*docstore.MemoryStore
}

func (s createRace) Create(ctx context.Context, collection, key string, doc docstore.Document) error {
	_ = s.MemoryStore.Set(ctx, collection, key, docstore.Document{"xp": 10, "completed_lessons": []string{"x"}})
	return s.MemoryStore.Create(ctx, collection, key, doc)
}

func TestStore_LoadCreateRace(t *testing.T) {
	store := progress.NewStore(createRace{docstore.NewMemoryStore()}, "")

	rec, err := store.Load(t.Context(), "u")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rec.XP != 10 || len(rec.CompletedLessons) != 1 {
		t.Errorf("Load() = %+v, want the concurrently created record", rec)
	}
}
