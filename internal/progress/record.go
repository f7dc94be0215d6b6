// Package progress owns a learner's progress record: experience points and
// the set of completed lessons, plus its persistence in the document store.
package progress

import (
	"math"
	"slices"
)

// LessonAward is the XP granted once per newly completed lesson.
const LessonAward = 10

const (
	xpPerLevel   = 50
	xpForFullBar = 100
)

// Record is one learner's progress. XP always equals
// LessonAward * len(CompletedLessons) when changed only through Complete.
type Record struct {
	XP               int      `json:"xp"`
	CompletedLessons []string `json:"completed_lessons"`
}

// NewRecord returns the starting record for a learner with no history.
func NewRecord() Record {
	return Record{XP: 0, CompletedLessons: []string{}}
}

// Completed reports whether the lesson has already been awarded.
func (r Record) Completed(lesson string) bool {
	return slices.Contains(r.CompletedLessons, lesson)
}

// Complete returns a copy with the lesson marked done and the award added.
// Completing a lesson twice returns an unchanged copy.
func (r Record) Complete(lesson string) Record {
	next := r.Clone()
	if next.Completed(lesson) {
		return next
	}
	next.XP += LessonAward
	next.CompletedLessons = append(next.CompletedLessons, lesson)
	return next
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	lessons := make([]string, len(r.CompletedLessons))
	copy(lessons, r.CompletedLessons)
	return Record{XP: r.XP, CompletedLessons: lessons}
}

// Level is 1 plus one level per 50 XP.
func Level(xp int) int {
	return 1 + xp/xpPerLevel
}

// Fraction is the progress bar fill, clamped to 1.0 at 100 XP.
func Fraction(xp int) float64 {
	return math.Min(float64(xp)/xpForFullBar, 1.0)
}
