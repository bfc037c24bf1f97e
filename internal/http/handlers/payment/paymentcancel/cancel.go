// Package paymentcancel реализует HTTP-обработчик отмены ожидания оплаты.
package paymentcancel

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

	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/services/ledger"
	"github.com/nzuev/channel-pass/internal/services/workflow"
)

// Handler управляет HTTP-запросами на отмену оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сценария отмены.
type Service interface {
	Cancel(ctx context.Context, userID, txID string) error
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
// @Summary Отменить оплату
// @Description Отменяет ожидание оплаты до решения; запись в журнале не меняется.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param txID path string true "Код транзакции"
// @Param request body models.ClaimRequest true "Пользователь"
// @Success 200 {object} response.Response "Оплата отменена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Чужая транзакция"
// @Failure 404 {object} response.ErrorResponse "Транзакция не найдена"
// @Failure 409 {object} response.ErrorResponse "Платёж уже финализирован"
// @Router /payments/{txID}/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	txID := chi.URLParam(r, "txID")

	var req models.ClaimRequest
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

	if err := h.service.Cancel(r.Context(), req.UserID, txID); err != nil {
		switch {
		case errors.Is(err, ledger.ErrPaymentNotFound):
			log.Error("payment not found", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, workflow.ErrForbidden):
			log.Error("cancel on foreign transaction", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, ledger.ErrAlreadyFinalized):
			log.Error("payment already finalized", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already finalized"))
		default:
			log.Error("failed to cancel payment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not cancel payment"))
		}
		return
	}

	log.Info("payment cancelled", slog.String("tx_id", txID))
	render.JSON(w, r, response.StatusOKWithData(nil))
}
