package render

import (
	"assignmentTracker/internal/visibility"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	lectureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	sharedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	emptyStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
)

const (
	markDone     = "[x]"
	markOpen     = "[ ]"
	markShared   = "@all"
	markEditable = "*"
	noLecture    = "(без лекции)"
	dueLayout    = "2006-01-02 15:04"
)

type Agenda struct {
	Now      time.Time
	Location *time.Location
}

func NewAgenda(loc *time.Location) Agenda {
	if loc == nil {
		loc = time.UTC
	}
	return Agenda{Now: time.Now(), Location: loc}
}

// Line - одна задача: отметка, срок, название и маркеры общей и редактируемой задачи
func (a Agenda) Line(e visibility.Entry) string {
	t := e.Task

	mark := markOpen
	if e.Done {
		mark = markDone
	}

	due := "без срока"
	if !t.DueTime.IsZero() {
		due = t.DueTime.In(a.Location).Format(dueLayout)
	}

	title := t.Title
	switch {
	case e.Done:
		title = doneStyle.Render(title)
	case !t.DueTime.IsZero() && t.DueTime.Before(a.Now):
		due = overdueStyle.Render(due)
	}

	parts := []string{mark, mutedStyle.Render(due), title}
	if t.IsShared() {
		parts = append(parts, sharedStyle.Render(markShared))
	}
	if e.Editable {
		parts = append(parts, markEditable)
	}
	return strings.Join(parts, " ")
}

// Render печатает задачи, сгруппированные по лекциям, в порядке групп
func (a Agenda) Render(w io.Writer, groups []visibility.LectureGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, emptyStyle.Render("нет задач"))
		return err
	}

	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		lecture := g.Lecture
		if strings.TrimSpace(lecture) == "" {
			lecture = noLecture
		}
		b.WriteString(lectureStyle.Render(lecture))
		b.WriteString("\n")
		for _, e := range g.Entries {
			b.WriteString("  ")
			b.WriteString(a.Line(e))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
