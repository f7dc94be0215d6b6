package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lenslove/academy/internal/docstore"
)

const (
	fieldXP        = "xp"
	fieldCompleted = "completed_lessons"

	// DefaultCollection holds one progress document per user.
	DefaultCollection = "users"
)

var (
	// ErrStoreUnavailable wraps every failure to read or write the document store.
	ErrStoreUnavailable = errors.New("progress store unavailable")
	// ErrInvalidUser is returned for an empty user identifier.
	ErrInvalidUser = errors.New("user id is required")
)

// Store reads and writes progress documents keyed by user id.
type Store struct {
	docs       docstore.Store
	collection string
}

// NewStore wraps a document store. An empty collection selects DefaultCollection.
func NewStore(docs docstore.Store, collection string) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{docs: docs, collection: collection}
}

// Load returns the user's record. A user without a document gets the default
// record, which is persisted before returning so later loads see it.
func (s *Store) Load(ctx context.Context, userID string) (Record, error) {
	if strings.TrimSpace(userID) == "" {
		return Record{}, ErrInvalidUser
	}

	doc, err := s.docs.Get(ctx, s.collection, userID)
	if err == nil {
		return decodeRecord(userID, doc), nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Record{}, s.unavailable("load", err)
	}

	rec := NewRecord()
	err = s.docs.Create(ctx, s.collection, userID, encodeRecord(rec))
	switch {
	case err == nil:
		slog.Info("progress initialized", "user_id", userID)
		return rec, nil
	case errors.Is(err, docstore.ErrAlreadyExists):
		// Another writer created it between our read and create.
		doc, err = s.docs.Get(ctx, s.collection, userID)
		if err != nil {
			return Record{}, s.unavailable("load", err)
		}
		return decodeRecord(userID, doc), nil
	default:
		return Record{}, s.unavailable("initialize", err)
	}
}

// Read returns the user's record without writing. A user without a document
// gets the default record, which is not persisted.
func (s *Store) Read(ctx context.Context, userID string) (Record, error) {
	if strings.TrimSpace(userID) == "" {
		return Record{}, ErrInvalidUser
	}

	doc, err := s.docs.Get(ctx, s.collection, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return NewRecord(), nil
	}
	if err != nil {
		return Record{}, s.unavailable("read", err)
	}
	return decodeRecord(userID, doc), nil
}

// Save writes xp and completed_lessons as a partial update of the user's document.
func (s *Store) Save(ctx context.Context, userID string, rec Record) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if err := s.docs.Update(ctx, s.collection, userID, encodeRecord(rec)); err != nil {
		return s.unavailable("save", err)
	}
	slog.Debug("progress saved", "user_id", userID, "xp", rec.XP, "completed", len(rec.CompletedLessons))
	return nil
}

// Ping checks the underlying document store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.docs.Ping(ctx); err != nil {
		return s.unavailable("ping", err)
	}
	return nil
}

func (s *Store) unavailable(op string, err error) error {
	storeErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func encodeRecord(rec Record) docstore.Document {
	lessons := rec.CompletedLessons
	if lessons == nil {
		lessons = []string{}
	}
	return docstore.Document{
		fieldXP:        rec.XP,
		fieldCompleted: lessons,
	}
}

// decodeRecord substitutes defaults for missing or unreadable fields.
func decodeRecord(userID string, doc docstore.Document) Record {
	rec := NewRecord()

	if _, present := doc[fieldXP]; present {
		if xp, ok := doc.Int(fieldXP); ok && xp >= 0 {
			rec.XP = xp
		} else {
			slog.Warn("ignoring unreadable progress field", "user_id", userID, "field", fieldXP)
		}
	}
	if _, present := doc[fieldCompleted]; present {
		if lessons, ok := doc.Strings(fieldCompleted); ok {
			rec.CompletedLessons = dedupe(lessons)
		} else {
			slog.Warn("ignoring unreadable progress field", "user_id", userID, "field", fieldCompleted)
		}
	}
	return rec
}

func dedupe(lessons []string) []string {
	seen := make(map[string]bool, len(lessons))
	out := make([]string, 0, len(lessons))
	for _, l := range lessons {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
