package visibility

import (
	"assignmentTracker/internal/models/task"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Entry - видимая задача вместе с правами и отметкой о выполнении для одного пользователя
type Entry struct {
	Task     *task.Task
	Editable bool
	Done     bool
}

// Join отбирает видимые задачи и подставляет отметки пользователя.
// Отсутствие записи в statuses означает "не выполнено".
func (f Filter) Join(tasks []*task.Task, user string, statuses map[uuid.UUID]bool) []Entry {
	res := []Entry{}
	for _, t := range tasks {
		if !f.CanView(t, user) {
			continue
		}
		res = append(res, Entry{
			Task:     t,
			Editable: f.CanEdit(t, user),
			Done:     statuses[t.UUID],
		})
	}
	return res
}

// SortByDue - по возрастанию дедлайна, при равенстве по лекции и названию
func SortByDue(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Task, entries[j].Task
		if !a.DueTime.Equal(b.DueTime) {
			return a.DueTime.Before(b.DueTime)
		}
		if a.Lecture != b.Lecture {
			return a.Lecture < b.Lecture
		}
		return a.Title < b.Title
	})
}

type LectureGroup struct {
	Lecture string
	Entries []Entry
}

// GroupByLecture сохраняет порядок первого появления лекции во входном срезе
func GroupByLecture(entries []Entry) []LectureGroup {
	index := map[string]int{}
	groups := []LectureGroup{}
	for _, e := range entries {
		i, ok := index[e.Task.Lecture]
		if !ok {
			i = len(groups)
			index[e.Task.Lecture] = i
			groups = append(groups, LectureGroup{Lecture: e.Task.Lecture})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

type Day struct {
	Date    time.Time
	Entries []Entry
}

// GroupByDay раскладывает задачи по календарным дням в часовом поясе loc.
// Задачи без дедлайна в календарь не попадают.
func GroupByDay(entries []Entry, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}

	index := map[time.Time]int{}
	days := []Day{}
	for _, e := range entries {
		if e.Task.DueTime.IsZero() {
			continue
		}
		local := e.Task.DueTime.In(loc)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

		i, ok := index[date]
		if !ok {
			i = len(days)
			index[date] = i
			days = append(days, Day{Date: date})
		}
		days[i].Entries = append(days[i].Entries, e)
	}

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}
