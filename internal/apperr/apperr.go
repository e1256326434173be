// Package apperr задаёт виды ошибок, которые видит клиент API, и их HTTP-статусы.
//
// Сервисы оборачивают свои ошибки в один из видов через %w; обработчики
// переводят их в ответ через Status и Message. Ошибки хранилища и провайдеров
// наружу не попадают.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrConfiguration не настроено хранилище или провайдер.
	ErrConfiguration = errors.New("service is not configured")
	// ErrAuthenticationRequired не передан идентификатор пользователя.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrInsufficientEntitlement у пользователя нет права на действие.
	ErrInsufficientEntitlement = errors.New("insufficient entitlement")
	// ErrInvalidSignature подпись платежа или вебхука не совпала.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput запрос некорректен.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream платёжный провайдер вернул ошибку или недоступен.
	ErrUpstream = errors.New("payment provider unavailable")
)

// Status возвращает HTTP-статус для ошибки.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientEntitlement):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает короткое сообщение для клиента.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "service is not configured"
	case errors.Is(err, ErrAuthenticationRequired):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientEntitlement):
		return "insufficient entitlement"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrInvalidInput):
		return invalidInputMessage(err)
	case errors.Is(err, ErrUpstream):
		return "payment provider unavailable"
	default:
		return "internal error"
	}
}

// invalidInputMessage отдаёт текст самой внешней ошибки: он формируется
// сервисом и не содержит деталей хранилища.
func invalidInputMessage(err error) string {
	var input *InputError
	if errors.As(err, &input) {
		return input.Msg
	}
	return "invalid request"
}

// InputError ошибка валидации с сообщением для клиента.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// Unwrap относит ошибку к ErrInvalidInput.
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Input создаёт ошибку валидации.
func Input(msg string) error {
	return &InputError{Msg: msg}
}
