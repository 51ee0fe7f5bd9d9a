package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter - счётчик запросов с фиксированным окном на каждый IP.
// Окна, срок которых вышел, вычищаются не реже раза за окно, так что карта
// содержит только клиентов, приходивших за последнее окно.
type Limiter struct {
	limit     int
	period    time.Duration
	now       func() time.Time
	mtx       sync.Mutex
	clients   map[string]*window
	nextSweep time.Time
}

type LimiterOption func(*Limiter)

func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(limit int, period time.Duration, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		clients: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow учитывает запрос клиента key и сообщает, сколько ещё осталось в текущем окне
func (l *Limiter) Allow(key string) (remaining int, resetAt time.Time, ok bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	now := l.now()
	if !now.Before(l.nextSweep) {
		l.sweep(now)
		l.nextSweep = now.Add(l.period)
	}

	w, exists := l.clients[key]
	if !exists || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.clients[key] = w
	}
	if w.count >= l.limit {
		return 0, w.resetAt, false
	}
	w.count++
	return l.limit - w.count, w.resetAt, true
}

func (l *Limiter) sweep(now time.Time) {
	for key, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, key)
		}
	}
}

// Clients - число отслеживаемых клиентов
func (l *Limiter) Clients() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, resetAt, ok := l.Allow(clientIP(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			retryAfter := int(resetAt.Sub(l.now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":      "RATE_LIMITED",
				"message":    "Слишком много запросов. Попробуйте позже.",
				"request_id": GetRequestID(r.Context()),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit - не больше rpm запросов в минуту с одного IP; rpm <= 0 отключает ограничение
func RateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return NewLimiter(rpm, time.Minute).Handler
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
