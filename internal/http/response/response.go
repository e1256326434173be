// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Ошибки сервисов переводятся
// в HTTP-статус и короткое сообщение через apperr, детали хранилища и
// провайдеров наружу не попадают.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/shortsos/shortsos/internal/apperr"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
	"github.com/shortsos/shortsos/internal/services/credits"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status статус запроса ("OK" или "Error").
// Поле Error текст ошибки (опционально, при неуспехе).
// Поле Data данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// InsufficientCredits тело ответа 403 при нехватке кредитов.
type InsufficientCredits struct {
	Success          bool   `json:"success"`
	Error            string `json:"error" example:"insufficient credits"`
	CreditsRemaining int    `json:"creditsRemaining"`
	CreditsNeeded    int    `json:"creditsNeeded"`
}

// Denied тело ответа 403 с решением, по которому клиент предлагает апгрейд.
type Denied struct {
	Error string `json:"error" example:"upgrade required"`
	models.Decision
}

// Received подтверждение приёма вебхука.
type Received struct {
	Received bool `json:"received" example:"true"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// WriteError пишет ответ по виду ошибки. Ошибки 5xx логируются с деталями,
// клиент получает только короткое сообщение.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var insufficient *credits.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, InsufficientCredits{
			Success:          false,
			Error:            "insufficient credits",
			CreditsRemaining: insufficient.CreditsRemaining,
			CreditsNeeded:    insufficient.CreditsNeeded,
		})
		return
	}

	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, Error(apperr.Message(err)))
}

// WriteDenied пишет 403 с полями решения.
func WriteDenied(w http.ResponseWriter, r *http.Request, d *models.Decision) {
	msg := "upgrade required"
	if d.CreditsNeeded > 0 {
		msg = "insufficient credits"
	} else if d.Limit > 0 && d.Remaining == 0 {
		msg = "daily limit reached"
	}
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, Denied{Error: msg, Decision: *d})
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		case "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must not be negative", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
