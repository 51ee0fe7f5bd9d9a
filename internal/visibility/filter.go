package visibility

import "assignmentTracker/internal/models/task"

// Filter решает, какие задачи пользователь видит и какие может изменять.
// Чистая функция от снимка задач и пользователя: без I/O и без ошибок.
type Filter struct {
	Policy Policy
}

func NewFilter(policy Policy) Filter {
	if policy == "" {
		policy = PolicyOwner
	}
	return Filter{Policy: policy}
}

func (f Filter) CanView(t *task.Task, user string) bool {
	if t == nil || t.CreatedBy == "" {
		return false
	}
	return t.IsShared() || t.OwnedBy(user)
}

func (f Filter) CanEdit(t *task.Task, user string) bool {
	if t == nil || user == "" || t.CreatedBy == "" {
		return false
	}
	if t.OwnedBy(user) {
		return true
	}
	if !t.IsShared() {
		return false
	}

	switch f.Policy {
	case PolicyEveryone:
		return true
	case PolicyAuthor:
		return t.Author != "" && t.Author == user
	default:
		return false
	}
}

// Visible сохраняет исходный порядок задач
func (f Filter) Visible(tasks []*task.Task, user string) []*task.Task {
	res := []*task.Task{}
	for _, t := range tasks {
		if f.CanView(t, user) {
			res = append(res, t)
		}
	}
	return res
}

func (f Filter) Editable(tasks []*task.Task, user string) []*task.Task {
	res := []*task.Task{}
	for _, t := range tasks {
		if f.CanView(t, user) && f.CanEdit(t, user) {
			res = append(res, t)
		}
	}
	return res
}
