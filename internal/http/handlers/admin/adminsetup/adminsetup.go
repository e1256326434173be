// Package adminsetup выдаёт аккаунту максимальный тариф по запросу оператора.
package adminsetup

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
)

// Service выдаёт тариф.
type Service interface {
	AdminSetup(ctx context.Context, email string, credits *int) (*models.AccountSummary, error)
}

// Handler обрабатывает POST /admin/setup.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдать тариф agency
// @Description Находит или создаёт аккаунт по email и выдаёт уровень agency на год. Доступно только с токеном оператора.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.AdminSetupRequest true "Email и необязательный баланс"
// @Success 200 {object} models.AccountSummary
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Нет токена оператора"
// @Failure 403 {object} response.ErrorResponse "Неверный токен оператора"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /admin/setup [post]
// @Security AdminToken
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.setup"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.AdminSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	s, err := h.service.AdminSetup(r.Context(), req.Email, req.Credits)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("plan granted by operator", sl.UserID(s.UserID), slog.String("tier", string(s.Tier)))
	render.JSON(w, r, s)
}
