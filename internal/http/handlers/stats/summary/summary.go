// Package summary реализует HTTP-обработчик сводной статистики.
package summary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
)

// Handler управляет HTTP-запросами на получение статистики.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сервиса статистики.
type Service interface {
	Summary(ctx context.Context) (*models.Stats, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сводная статистика
// @Description Возвращает агрегированную статистику по пользователям и платежам. Доступно только администратору.
// @Tags Stats
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any "Статистика"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats.summary"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	st, err := h.service.Summary(r.Context())
	if err != nil {
		log.Error("failed to compute stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not compute stats"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"stats": st,
	}))
}
