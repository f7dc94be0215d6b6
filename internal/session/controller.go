package session

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/progress"
)

// Outcome is the result of checking a quiz answer.
type Outcome string

const (
	OutcomeIncorrect        Outcome = "incorrect"
	OutcomeAlreadyCompleted Outcome = "correct_already_completed"
	OutcomeNewlyCompleted   Outcome = "correct_newly_completed"
)

// Correct reports whether the answer matched, regardless of prior completion.
func (o Outcome) Correct() bool {
	return o == OutcomeAlreadyCompleted || o == OutcomeNewlyCompleted
}

// Result carries the outcome and the record after the transition.
type Result struct {
	Outcome Outcome
	Record  progress.Record
}

// Decide is the pure transition rule. Options outside the lesson's list are
// simply incorrect.
func Decide(lesson curriculum.Lesson, rec progress.Record, chosen string) Outcome {
	if norm.NFC.String(chosen) != norm.NFC.String(lesson.Quiz.Answer) {
		return OutcomeIncorrect
	}
	if rec.Completed(lesson.Name) {
		return OutcomeAlreadyCompleted
	}
	return OutcomeNewlyCompleted
}

// SubmitAnswer checks an answer and, on a first correct answer, awards XP and
// persists the new record. The cached record changes only after the save
// succeeds; a failed save leaves the session exactly as it was.
func (s *Session) SubmitAnswer(ctx context.Context, id curriculum.LessonID, chosen string) (Result, error) {
	lesson, err := s.registry.Lesson(id.Module, id.Lesson)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return Result{}, err
	}

	outcome := Decide(lesson, s.record, chosen)
	progress.ObserveAnswer(string(outcome))

	if outcome != OutcomeNewlyCompleted {
		s.logger.Debug("answer checked", "lesson", lesson.Name, "outcome", outcome)
		return Result{Outcome: outcome, Record: s.record.Clone()}, nil
	}

	next := s.record.Complete(lesson.Name)
	if err := s.store.Save(ctx, s.userID, next); err != nil {
		s.logger.Error("completion not saved", "lesson", lesson.Name, "error", err)
		return Result{}, fmt.Errorf("completing %s: %w", id, err)
	}
	s.record = next
	progress.ObserveCompletion()

	s.logger.Info("lesson completed", "lesson", lesson.Name, "xp", next.XP, "level", progress.Level(next.XP))
	if err := s.events.LogEvent(ctx, progress.Event{
		UserID:    s.userID,
		EventType: progress.EventLessonCompleted,
		Data: map[string]any{
			"module": id.Module,
			"lesson": lesson.Name,
			"xp":     next.XP,
		},
	}); err != nil {
		s.logger.Warn("failed to log completion event", "error", err)
	}

	return Result{Outcome: outcome, Record: next.Clone()}, nil
}
