// Package history отдаёт журнал списаний кредитов.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shortsos/shortsos/internal/http/middlewarectx"
	"github.com/shortsos/shortsos/internal/http/response"
	"github.com/shortsos/shortsos/internal/models"
)

// Service читает журнал.
type Service interface {
	History(ctx context.Context, userID string, limit, offset int) ([]*models.CreditTransaction, error)
}

// Result тело ответа.
type Result struct {
	Transactions []*models.CreditTransaction `json:"transactions"`
	Count        int                         `json:"count"`
}

// Handler обрабатывает GET /credits/history.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Журнал списаний
// @Description Новые записи первыми. limit по умолчанию 20, не больше 100.
// @Tags Credits
// @Produce  json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} Result
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /credits/history [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits.history"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, okLimit := queryInt(r, "limit")
	offset, okOffset := queryInt(r, "offset")
	if !okLimit || !okOffset {
		log.Info("invalid pagination parameters")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("limit and offset must be non-negative integers"))
		return
	}

	userID, _ := middlewarectx.UserFromContext(r.Context())
	list, err := h.service.History(r.Context(), userID, limit, offset)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if list == nil {
		list = []*models.CreditTransaction{}
	}
	render.JSON(w, r, Result{Transactions: list, Count: len(list)})
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
