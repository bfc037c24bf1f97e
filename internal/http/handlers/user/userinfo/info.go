// Package userinfo реализует HTTP-обработчик просмотра доступа пользователя.
package userinfo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/access"
)

// Handler управляет HTTP-запросами на просмотр состояния доступа.
type Handler struct {
	log     *slog.Logger
	service Service
	catalog Catalog
}

// Service описывает интерфейс чтения состояния доступа.
type Service interface {
	Get(ctx context.Context, userID string) (*models.UserAccess, error)
}

// Catalog описывает интерфейс каталога тарифов.
type Catalog interface {
	Get(tariffID string) (models.Tariff, error)
}

// New создает новый Handler с переданными логгером, сервисом и каталогом.
func New(log *slog.Logger, service Service, catalog Catalog) *Handler {
	return &Handler{log: log, service: service, catalog: catalog}
}

// ServeHTTP godoc
// @Summary Состояние доступа пользователя
// @Description Возвращает состояние доступа и название тарифа. Доступно только администратору.
// @Tags Users
// @Security BearerAuth
// @Produce  json
// @Param userID path string true "Идентификатор пользователя"
// @Success 200 {object} map[string]any "Состояние доступа"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{userID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.info"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")

	ua, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, access.ErrUnknownUser) {
			log.Error("user not found", slog.String("user_id", userID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to read user access", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read user access"))
		return
	}

	tariffName := ""
	if t, err := h.catalog.Get(ua.TariffID); err == nil {
		tariffName = t.Name
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"access":      ua,
		"tariff_name": tariffName,
	}))
}
