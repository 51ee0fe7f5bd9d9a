package task

import (
	"strings"
	"time"
)

// Fields - набор изменяемых полей задачи; nil означает "не менять"
type Fields struct {
	Lecture *string    `json:"lecture,omitempty"`
	Title   *string    `json:"title,omitempty"`
	DueTime *time.Time `json:"due_time,omitempty"`
}

type TaskOption func(*Fields)

func WithLecture(lecture string) TaskOption {
	return func(f *Fields) {
		lecture = strings.TrimSpace(lecture)
		f.Lecture = &lecture
	}
}

func WithTitle(title string) TaskOption {
	return func(f *Fields) {
		title = strings.TrimSpace(title)
		f.Title = &title
	}
}

func WithDueTime(dueTime time.Time) TaskOption {
	if dueTime.IsZero() {
		return nil
	}
	return func(f *Fields) {
		f.DueTime = &dueTime
	}
}

// BuildFields собирает изменения из опций, пропуская nil
func BuildFields(options ...TaskOption) Fields {
	var f Fields
	for _, opt := range options {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

func (f Fields) Empty() bool {
	return f.Lecture == nil && f.Title == nil && f.DueTime == nil
}

// Apply переносит заданные поля в задачу. created_by и author не меняются никогда
func (f Fields) Apply(t *Task) {
	if f.Lecture != nil {
		t.Lecture = *f.Lecture
	}
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.DueTime != nil {
		t.DueTime = *f.DueTime
	}
}
