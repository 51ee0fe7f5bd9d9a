package service

import "time"

type ServiceOption func(*TaskService)

// WithLocation - часовой пояс, в котором считаются календарные дни
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *TaskService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}
