package fleetapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized возвращается на любой ответ 401. Сессия после него
// считается мёртвой: токен отозван ещё до попытки разобрать тело ответа.
// ErrUnauthorized is returned for any 401 response. The session is dead
// after it: the token is revoked before the body is even parsed.
var ErrUnauthorized = errors.New("unauthorized")

// APIError - нормализованная ошибка бэкенд-API: человекочитаемое сообщение
// плюс сырой ответ сервера и HTTP-статус. Все не-2xx ответы приводятся к ней
// в одной точке (Client.Request).
type APIError struct {
	Status  int
	Detail  string `json:"detail,omitempty"`
	Err     string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Raw     string // Сырое тело ответа, как пришло
}

// Error возвращает лучшее доступное сообщение: detail || error || message,
// иначе generic со статусом.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != "" {
		return e.Err
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("запрос завершился со статусом %d", e.Status)
}

// ErrorKind - классификация ошибок бэкенда для логики восстановления.
type ErrorKind int

const (
	ErrKindGeneric      ErrorKind = iota
	ErrKindConflict               // Расчёт за этот период уже существует
	ErrKindUnauthorized           // 401, сессия отозвана
)

// ClassifyError определяет вид ошибки. Конфликт "уже существует" бэкенд
// не отдаёт отдельным кодом, поэтому классификация эвристическая: подстрока
// "already exists" в message/error/detail. Эвристика изолирована здесь,
// чтобы её можно было протестировать и заменить, если у API появится
// машиночитаемый код конфликта.
// ClassifyError determines the error kind. The "already exists" conflict has
// no machine-readable code upstream, so the substring heuristic lives behind
// this single function.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindGeneric
	}
	if errors.Is(err, ErrUnauthorized) {
		return ErrKindUnauthorized
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 401 {
			return ErrKindUnauthorized
		}
		for _, msg := range []string{apiErr.Message, apiErr.Err, apiErr.Detail} {
			if strings.Contains(msg, "already exists") {
				return ErrKindConflict
			}
		}
		return ErrKindGeneric
	}

	if strings.Contains(err.Error(), "already exists") {
		return ErrKindConflict
	}
	return ErrKindGeneric
}

// UserMessage возвращает сообщение об ошибке для показа пользователю:
// detail/error/message сервера или запасной текст. Транспортные ошибки
// пользователю не показываются, только запасной текст.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Unauthorized"
	}
	return fallback
}
