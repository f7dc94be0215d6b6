package curriculum

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for module or lesson names the registry does not hold.
var ErrNotFound = errors.New("curriculum entry not found")

// Registry is the read-only curriculum. It is built once and never mutated,
// so it is safe for concurrent use without locking.
type Registry struct {
	modules []Module
	lessons map[LessonID]Lesson
	byName  map[string]LessonID
}

// NewRegistry validates modules and builds the lookup indexes.
func NewRegistry(modules []Module) (*Registry, error) {
	if err := validate(modules); err != nil {
		return nil, err
	}

	r := &Registry{
		modules: make([]Module, 0, len(modules)),
		lessons: make(map[LessonID]Lesson),
		byName:  make(map[string]LessonID),
	}
	for _, m := range modules {
		kept := Module{Name: m.Name, Lessons: make([]Lesson, 0, len(m.Lessons))}
		for _, l := range m.Lessons {
			l = l.clone()
			l.ID = LessonID{Module: m.Name, Lesson: l.Name}
			kept.Lessons = append(kept.Lessons, l)
			r.lessons[l.ID] = l
			r.byName[l.Name] = l.ID
		}
		r.modules = append(r.modules, kept)
	}
	return r, nil
}

// Modules returns module names in declaration order.
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name)
	}
	return names
}

// Lessons returns the lesson names of a module in declaration order.
func (r *Registry) Lessons(module string) ([]string, error) {
	for _, m := range r.modules {
		if m.Name != module {
			continue
		}
		names := make([]string, 0, len(m.Lessons))
		for _, l := range m.Lessons {
			names = append(names, l.Name)
		}
		return names, nil
	}
	return nil, fmt.Errorf("module %q: %w", module, ErrNotFound)
}

// Lesson looks up one lesson definition.
func (r *Registry) Lesson(module, lesson string) (Lesson, error) {
	l, ok := r.lessons[LessonID{Module: module, Lesson: lesson}]
	if !ok {
		if _, err := r.Lessons(module); err != nil {
			return Lesson{}, err
		}
		return Lesson{}, fmt.Errorf("lesson %q in module %q: %w", lesson, module, ErrNotFound)
	}
	return l.clone(), nil
}

// Find resolves a lesson name, which is unique across the curriculum.
func (r *Registry) Find(lesson string) (LessonID, bool) {
	id, ok := r.byName[lesson]
	return id, ok
}

// Default is the initial selection: first lesson of the first module.
func (r *Registry) Default() LessonID {
	m := r.modules[0]
	return LessonID{Module: m.Name, Lesson: m.Lessons[0].Name}
}

// Count returns the total number of lessons.
func (r *Registry) Count() int {
	return len(r.lessons)
}

func validate(modules []Module) error {
	if len(modules) == 0 {
		return fmt.Errorf("curriculum has no modules")
	}

	moduleNames := make(map[string]bool)
	lessonNames := make(map[string]string)
	for _, m := range modules {
		if m.Name == "" {
			return fmt.Errorf("module with empty name")
		}
		if moduleNames[m.Name] {
			return fmt.Errorf("duplicate module %q", m.Name)
		}
		moduleNames[m.Name] = true

		if len(m.Lessons) == 0 {
			return fmt.Errorf("module %q has no lessons", m.Name)
		}
		for _, l := range m.Lessons {
			if l.Name == "" {
				return fmt.Errorf("module %q: lesson with empty name", m.Name)
			}
			if other, dup := lessonNames[l.Name]; dup {
				return fmt.Errorf("lesson %q appears in both %q and %q", l.Name, other, m.Name)
			}
			lessonNames[l.Name] = m.Name

			if err := validateQuiz(l.Quiz); err != nil {
				return fmt.Errorf("lesson %q: %w", l.Name, err)
			}
		}
	}
	return nil
}

func validateQuiz(q Quiz) error {
	if len(q.Options) == 0 {
		return fmt.Errorf("quiz has no options")
	}
	seen := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		if seen[opt] {
			return fmt.Errorf("duplicate quiz option %q", opt)
		}
		seen[opt] = true
	}
	if !seen[q.Answer] {
		return fmt.Errorf("answer %q is not one of the options", q.Answer)
	}
	return nil
}
