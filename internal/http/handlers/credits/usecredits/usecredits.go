// Package usecredits списывает кредиты за вызов функции.
package usecredits

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

// Service списывает кредиты.
type Service interface {
	UseCredits(ctx context.Context, userID, feature string) (*models.CreditResult, error)
}

// Handler обрабатывает POST /credits/use.
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
// @Summary Списать кредиты
// @Description Списывает стоимость функции с баланса. Платные аккаунты не тратят кредиты.
// @Tags Credits
// @Accept  json
// @Produce  json
// @Param request body models.FeatureRequest true "Функция"
// @Success 200 {object} models.CreditResult
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестная функция"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.InsufficientCredits "Недостаточно кредитов"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /credits/use [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.use"
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
	res, err := h.service.UseCredits(r.Context(), userID, req.Feature)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("credits used", sl.UserID(userID), sl.Feature(req.Feature),
		slog.Int("used", res.CreditsUsed), slog.Int("remaining", res.CreditsRemaining))
	render.JSON(w, r, res)
}
