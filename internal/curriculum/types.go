package curriculum

// LessonID addresses a lesson by module name and lesson name.
type LessonID struct {
	Module string
	Lesson string
}

func (id LessonID) String() string {
	return id.Module + " / " + id.Lesson
}

// Quiz is a single-select question with exactly one correct option.
type Quiz struct {
	Question string   `yaml:"question" json:"question"`
	Options  []string `yaml:"options" json:"options"`
	Answer   string   `yaml:"answer" json:"-"`
}

// Lesson is one immutable lesson definition.
type Lesson struct {
	ID        LessonID `yaml:"-" json:"-"`
	Name      string   `yaml:"name" json:"name"`
	Content   string   `yaml:"content" json:"content"`
	Quiz      Quiz     `yaml:"quiz" json:"quiz"`
	Challenge string   `yaml:"challenge" json:"challenge"`
}

// Module groups lessons in declaration order.
type Module struct {
	Name    string   `yaml:"name"`
	Lessons []Lesson `yaml:"lessons"`
}

// document is the on-disk curriculum layout.
type document struct {
	Modules []Module `yaml:"modules"`
}

func (l Lesson) clone() Lesson {
	l.Quiz.Options = append([]string(nil), l.Quiz.Options...)
	return l
}
