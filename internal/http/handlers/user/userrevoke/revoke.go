// Package userrevoke реализует HTTP-обработчик отзыва доступа администратором.
package userrevoke

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nzuev/channel-pass/internal/http/middlewarectx"
	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/access"
	"github.com/nzuev/channel-pass/internal/services/workflow"
)

// Handler управляет HTTP-запросами на отзыв доступа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс сценария отзыва доступа.
type Service interface {
	RevokeDirect(ctx context.Context, callerID, userID string) (*models.UserAccess, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отозвать доступ
// @Description Снимает у пользователя признак доступа; запись о пользователе сохраняется. Доступно только администратору.
// @Tags Users
// @Security BearerAuth
// @Produce  json
// @Param userID path string true "Идентификатор пользователя"
// @Success 200 {object} map[string]any "Состояние доступа"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{userID}/revoke [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.revoke"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerID, _ := r.Context().Value(middlewarectx.CallerID).(string)
	userID := chi.URLParam(r, "userID")

	ua, err := h.service.RevokeDirect(r.Context(), callerID, userID)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrForbidden):
			log.Error("revoke by non-administrator", slog.String("caller_id", callerID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, access.ErrUnknownUser):
			log.Error("user not found", slog.String("user_id", userID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to revoke access", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not revoke access"))
		}
		return
	}

	log.Info("access revoked", slog.String("user_id", userID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"access": ua,
	}))
}
