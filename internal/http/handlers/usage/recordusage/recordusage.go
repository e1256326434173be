// Package recordusage фиксирует использование функции после успешного вызова.
package recordusage

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

// Service записывает использование.
type Service interface {
	RecordUsage(ctx context.Context, userID, feature, idempotencyKey string) (bool, error)
}

// Result тело ответа. Recorded равен false, если ключ идемпотентности уже встречался.
type Result struct {
	Success  bool `json:"success"`
	Recorded bool `json:"recorded"`
}

// Handler обрабатывает POST /usage/record.
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
// @Summary Записать использование функции
// @Description Вызывается после успешной генерации. Повтор с тем же idempotency_key не создаёт запись.
// @Tags Usage
// @Accept  json
// @Produce  json
// @Param request body models.FeatureRequest true "Функция и ключ идемпотентности"
// @Success 200 {object} Result
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестная функция"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /usage/record [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usage.record"
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
	recorded, err := h.service.RecordUsage(r.Context(), userID, req.Feature, req.IdempotencyKey)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("usage recorded", sl.UserID(userID), sl.Feature(req.Feature), slog.Bool("recorded", recorded))
	render.JSON(w, r, Result{Success: true, Recorded: recorded})
}
