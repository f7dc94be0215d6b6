// Package session holds the state of one interactive learning session: the
// learner's cached progress, loaded from the store once, and the quiz
// transition that updates it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/progress"
)

var (
	// ErrClosed is returned by any call after Close.
	ErrClosed = errors.New("session closed")
	// ErrUnsupportedUpload rejects challenge uploads that are not jpg or png.
	ErrUnsupportedUpload = errors.New("only jpg and png photos are accepted")
	// ErrUploadTooLarge rejects challenge uploads above the configured limit.
	ErrUploadTooLarge = errors.New("photo is too large")
)

const defaultMaxUploadBytes = 10 << 20

var uploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Config holds the dependencies of a session.
type Config struct {
	UserID         string
	Store          *progress.Store
	Registry       *curriculum.Registry
	Events         progress.EventLogger // optional
	MaxUploadBytes int                  // default 10 MiB
}

// Session is the per-session context passed to every learner interaction.
type Session struct {
	id             string
	userID         string
	store          *progress.Store
	registry       *curriculum.Registry
	events         progress.EventLogger
	maxUploadBytes int
	logger         *slog.Logger

	mu          sync.Mutex
	record      progress.Record
	initialized bool
	closed      bool
}

// Status is the sidebar summary derived from XP.
type Status struct {
	XP       int     `json:"xp"`
	Level    int     `json:"level"`
	Progress float64 `json:"progress"`
}

// LessonView is everything the presenter shows for one lesson.
type LessonView struct {
	Module    string   `json:"module"`
	Lesson    string   `json:"lesson"`
	Completed bool     `json:"completed"`
	Content   string   `json:"content"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Challenge string   `json:"challenge"`
}

// Upload acknowledges a challenge photo. The bytes are never inspected or kept.
type Upload struct {
	Module   string `json:"module"`
	Lesson   string `json:"lesson"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// New creates a session. Nothing is read from the store until first use.
func New(cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, progress.ErrInvalidUser
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("progress store is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("curriculum registry is required")
	}
	events := cfg.Events
	if events == nil {
		events = progress.NopEventLogger{}
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	id := uuid.NewString()
	return &Session{
		id:             id,
		userID:         cfg.UserID,
		store:          cfg.Store,
		registry:       cfg.Registry,
		events:         events,
		maxUploadBytes: maxUpload,
		logger:         slog.With("session_id", id, "user_id", cfg.UserID),
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// UserID returns the learner this session belongs to.
func (s *Session) UserID() string { return s.userID }

// Progress returns a copy of the cached record, loading it on first use.
func (s *Session) Progress(ctx context.Context) (progress.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return progress.Record{}, err
	}
	return s.record.Clone(), nil
}

// Status returns level, XP and progress bar fill.
func (s *Session) Status(ctx context.Context) (Status, error) {
	rec, err := s.Progress(ctx)
	if err != nil {
		return Status{}, err
	}
	return StatusOf(rec), nil
}

// StatusOf derives the sidebar summary from a record.
func StatusOf(rec progress.Record) Status {
	return Status{
		XP:       rec.XP,
		Level:    progress.Level(rec.XP),
		Progress: progress.Fraction(rec.XP),
	}
}

// View renders a lesson for the presenter. The answer is not included.
func (s *Session) View(ctx context.Context, id curriculum.LessonID) (LessonView, error) {
	lesson, err := s.registry.Lesson(id.Module, id.Lesson)
	if err != nil {
		return LessonView{}, err
	}
	rec, err := s.Progress(ctx)
	if err != nil {
		return LessonView{}, err
	}
	return LessonView{
		Module:    id.Module,
		Lesson:    lesson.Name,
		Completed: rec.Completed(lesson.Name),
		Content:   lesson.Content,
		Question:  lesson.Quiz.Question,
		Options:   lesson.Quiz.Options,
		Challenge: lesson.Challenge,
	}, nil
}

// AcceptUpload acknowledges a challenge photo after checking its type and size.
func (s *Session) AcceptUpload(id curriculum.LessonID, filename string, size int) (Upload, error) {
	if _, err := s.registry.Lesson(id.Module, id.Lesson); err != nil {
		return Upload{}, err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Upload{}, ErrClosed
	}

	if !uploadExtensions[strings.ToLower(path.Ext(filename))] {
		return Upload{}, fmt.Errorf("%q: %w", filename, ErrUnsupportedUpload)
	}
	if size > s.maxUploadBytes {
		return Upload{}, fmt.Errorf("%q is %d bytes, limit %d: %w", filename, size, s.maxUploadBytes, ErrUploadTooLarge)
	}

	s.logger.Info("challenge photo received", "lesson", id.Lesson, "filename", filename, "size", size)
	return Upload{Module: id.Module, Lesson: id.Lesson, Filename: filename, Size: size}, nil
}

// Close ends the session. The cached record is discarded; a new session
// reads the store again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.initialized = false
	s.record = progress.Record{}
	s.logger.Info("session closed")
}

// ensureLoaded performs the single store read of the session. Callers hold s.mu.
func (s *Session) ensureLoaded(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.initialized {
		return nil
	}

	rec, err := s.store.Load(ctx, s.userID)
	if err != nil {
		return err
	}
	s.record = rec
	s.initialized = true
	s.logger.Info("session started", "xp", rec.XP, "completed", len(rec.CompletedLessons))
	return nil
}
