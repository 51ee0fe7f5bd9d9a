package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	PassphraseHeader            = "X-Passphrase"
	UserKey          contextKey = "user"
)

// Identity кладёт пароль-идентификатор из заголовка в контекст.
// Проверка значения остаётся за сервисом: пустой пароль там отклоняется.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(PassphraseHeader))
		ctx := context.WithValue(r.Context(), UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}
