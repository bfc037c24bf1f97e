// Package usergrant реализует HTTP-обработчик прямой выдачи доступа администратором.
package usergrant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nzuev/channel-pass/internal/http/middlewarectx"
	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/workflow"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// Handler управляет HTTP-запросами на выдачу доступа без оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сценария прямой выдачи доступа.
type Service interface {
	GrantDirect(ctx context.Context, callerID, userID, tariffID string) (*models.UserAccess, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдать доступ
// @Description Выдаёт пользователю доступ по тарифу в обход оплаты. Доступно только администратору.
// @Tags Users
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param userID path string true "Идентификатор пользователя"
// @Param request body models.GrantRequest true "Тариф"
// @Success 200 {object} map[string]any "Состояние доступа"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неизвестный тариф"
// @Router /users/{userID}/grant [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.grant"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerID, _ := r.Context().Value(middlewarectx.CallerID).(string)
	userID := chi.URLParam(r, "userID")

	var req models.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	ua, err := h.service.GrantDirect(r.Context(), callerID, userID, req.TariffID)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrForbidden):
			log.Error("grant by non-administrator", slog.String("caller_id", callerID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, tariffs.ErrUnknownTariff):
			log.Error("unknown tariff", slog.String("tariff_id", req.TariffID))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown tariff"))
		default:
			log.Error("failed to grant access", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not grant access"))
		}
		return
	}

	log.Info("access granted", slog.String("user_id", userID), slog.String("tariff_id", req.TariffID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"access": ua,
	}))
}
