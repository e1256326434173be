// Package ensure создаёт аккаунт пользователя при первом входе.
package ensure

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/sl"
)

// Service создаёт аккаунт.
type Service interface {
	EnsureAccount(ctx context.Context, userID, email string) (bool, error)
}

// Result тело ответа.
type Result struct {
	Created bool `json:"created"`
}

// Handler обрабатывает POST /account/ensure.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Создать аккаунт, если его нет
// @Description Идемпотентно. created = false, если аккаунт уже существовал.
// @Tags Account
// @Produce  json
// @Success 200 {object} Result
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /account/ensure [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.ensure"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, email := middlewarectx.UserFromContext(r.Context())
	created, err := h.service.EnsureAccount(r.Context(), userID, email)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if created {
		log.Info("account created", sl.UserID(userID))
	}
	render.JSON(w, r, Result{Created: created})
}
