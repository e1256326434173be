// Package authorize принимает единое решение о доступе к функции.
package authorize

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/lib/sl"
	"github.com/shortsos/shortsos/internal/models"
)

// Service принимает решение о доступе.
type Service interface {
	Authorize(ctx context.Context, userID, feature string) (*models.Decision, error)
}

// Handler обрабатывает POST /entitlements/authorize.
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
// @Summary Решение о доступе к функции
// @Description Для функций за кредиты списывает стоимость. Для функций с дневным лимитом только проверяет остаток, запись делается через /usage/record.
// @Tags Entitlements
// @Accept  json
// @Produce  json
// @Param request body models.FeatureRequest true "Функция"
// @Success 200 {object} models.Decision
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестная функция"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.Denied "Доступ запрещён"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /entitlements/authorize [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.authorize"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.FeatureRequest
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

	userID, _ := middlewarectx.UserFromContext(r.Context())
	d, err := h.service.Authorize(r.Context(), userID, req.Feature)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if !d.Allowed {
		log.Info("access denied", sl.UserID(userID), sl.Feature(req.Feature),
			slog.String("current_tier", string(d.CurrentTier)))
		response.WriteDenied(w, r, d)
		return
	}
	render.JSON(w, r, d)
}
