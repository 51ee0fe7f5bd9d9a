package dto

import (
	"assignmentTracker/internal/visibility"
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Lecture string    `json:"lecture"`
	Title   string    `json:"title"`
	DueTime time.Time `json:"due_time"`
	Shared  bool      `json:"shared"`
}

type UpdateTaskRequest struct {
	Lecture *string    `json:"lecture,omitempty"`
	Title   *string    `json:"title,omitempty"`
	DueTime *time.Time `json:"due_time,omitempty"`
}

type CompletionRequest struct {
	Done *bool `json:"done"`
}

// TaskResponse не содержит created_by и author: это чужие пароли-идентификаторы
type TaskResponse struct {
	UUID      uuid.UUID  `json:"id"`
	Lecture   string     `json:"lecture"`
	Title     string     `json:"title"`
	DueTime   time.Time  `json:"due_time"`
	Shared    bool       `json:"shared"`
	Editable  bool       `json:"editable"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	IsOverdue bool       `json:"is_overdue"`
}

type LectureResponse struct {
	Lecture string         `json:"lecture"`
	Tasks   []TaskResponse `json:"tasks"`
}

type DayResponse struct {
	Date  string         `json:"date"`
	Tasks []TaskResponse `json:"tasks"`
}

func FromEntry(e visibility.Entry, now time.Time) TaskResponse {
	t := e.Task
	return TaskResponse{
		UUID:      t.UUID,
		Lecture:   t.Lecture,
		Title:     t.Title,
		DueTime:   t.DueTime,
		Shared:    t.IsShared(),
		Editable:  e.Editable,
		Done:      e.Done,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		IsOverdue: !e.Done && !t.DueTime.IsZero() && t.DueTime.Before(now),
	}
}

func FromEntries(entries []visibility.Entry, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(entries))
	for i, e := range entries {
		result[i] = FromEntry(e, now)
	}
	return result
}

func FromLectureGroups(groups []visibility.LectureGroup, now time.Time) []LectureResponse {
	result := make([]LectureResponse, len(groups))
	for i, g := range groups {
		result[i] = LectureResponse{Lecture: g.Lecture, Tasks: FromEntries(g.Entries, now)}
	}
	return result
}

func FromDays(days []visibility.Day, now time.Time) []DayResponse {
	result := make([]DayResponse, len(days))
	for i, d := range days {
		result[i] = DayResponse{Date: d.Date.Format(time.DateOnly), Tasks: FromEntries(d.Entries, now)}
	}
	return result
}
