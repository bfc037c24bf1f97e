// Package paymentcreate реализует HTTP-обработчик выбора тарифа.
//
// Handler принимает идентификаторы пользователя и тарифа, создаёт через
// сценарий ожидающий платёж и возвращает код транзакции с суммой.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// Handler управляет HTTP-запросами на создание платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сценария выбора тарифа.
type Service interface {
	SelectTariff(ctx context.Context, userID, tariffID string) (*models.PaymentRecord, error)
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
// @Summary Выбрать тариф
// @Description Создаёт ожидающий платёж и возвращает код транзакции.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.SelectTariffRequest true "Пользователь и тариф"
// @Success 200 {object} map[string]any "Созданный платёж"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неизвестный тариф"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.SelectTariffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	rec, err := h.service.SelectTariff(r.Context(), req.UserID, req.TariffID)
	if err != nil {
		if errors.Is(err, tariffs.ErrUnknownTariff) {
			log.Error("unknown tariff", slog.String("tariff_id", req.TariffID))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown tariff"))
			return
		}
		log.Error("failed to create payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create payment"))
		return
	}

	log.Info("pending payment created", slog.String("tx_id", rec.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"transaction_id": rec.ID,
		"amount":         rec.Amount,
	}))
}
