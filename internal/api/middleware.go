// Файл: internal/api/middleware.go
package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"smartfleet/internal/session"
)

// SessionContextKey - ключ для сохранения сессии в контексте запроса.
var SessionContextKey = &contextKey{"Session"}

type contextKey struct {
	name string
}

// AuthMiddleware проверяет заголовок Authorization: Bearer <session id>
// и кладёт живую сессию в контекст запроса.
func AuthMiddleware(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header")
				return
			}

			sess, ok := sessions.Get(token)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Session expired. Please log in again.")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DepartmentMiddleware пропускает только сотрудников нужного отдела.
// Пустой department в профиле трактуется как отсутствие ограничений
// (бэкенд не для всех аккаунтов возвращает отдел).
func DepartmentMiddleware(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := r.Context().Value(SessionContextKey).(session.Session)
			if !ok {
				writeJSONError(w, http.StatusForbidden, "Session not found in context")
				return
			}
			dept := sess.User.Department
			if dept != "" && !strings.EqualFold(dept, required) {
				log.Printf("DepartmentMiddleware: отказ пользователю '%s' (отдел '%s', требуется '%s').",
					sess.User.Username, dept, required)
				writeJSONError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionFromContext достаёт сессию, положенную AuthMiddleware.
func sessionFromContext(r *http.Request) session.Session {
	sess, _ := r.Context().Value(SessionContextKey).(session.Session)
	return sess
}
