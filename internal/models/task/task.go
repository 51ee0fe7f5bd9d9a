package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Shared - значение created_by, при котором задача видна всем пользователям
const Shared = "all"

type Task struct {
	UUID      uuid.UUID  `json:"uuid" db:"uuid"`
	Lecture   string     `json:"lecture" db:"lecture"`
	Title     string     `json:"title" db:"title"`
	DueTime   time.Time  `json:"due_time" db:"due_time"`
	CreatedBy string     `json:"created_by" db:"created_by"`
	Author    string     `json:"author,omitempty" db:"author"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at,omitempty"`
}

// Status - отметка о выполнении задачи конкретным пользователем
type Status struct {
	User   string    `json:"user" db:"user_id"`
	TaskID uuid.UUID `json:"task_id" db:"task_id"`
	Done   bool      `json:"is_done" db:"is_done"`
}

func (t *Task) IsShared() bool {
	return t.CreatedBy == Shared
}

// OwnedBy сравнивает created_by с пользователем; пустой владелец не совпадает ни с кем
func (t *Task) OwnedBy(user string) bool {
	return t.CreatedBy != "" && t.CreatedBy == user
}

// NormalizeIdentity обрезает пробелы вокруг пароля-идентификатора
func NormalizeIdentity(user string) string {
	return strings.TrimSpace(user)
}
