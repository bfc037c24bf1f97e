// Package paymentdecision реализует HTTP-обработчик решения администратора по платежу.
package paymentdecision

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
	"github.com/nzuev/channel-pass/internal/services/ledger"
	"github.com/nzuev/channel-pass/internal/services/workflow"
)

// Handler управляет HTTP-запросами на подтверждение или отклонение платежа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сценария ручной проверки платежа.
type Service interface {
	Decide(ctx context.Context, callerID, txID string, approve bool) (*models.PaymentRecord, error)
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
// @Summary Решение по платежу
// @Description Подтверждает или отклоняет ожидающий платёж. Доступно только администратору.
// @Tags Payments
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param txID path string true "Код транзакции"
// @Param request body models.DecisionRequest true "Решение: confirm или reject"
// @Success 200 {object} response.Response "Решение применено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Транзакция не найдена"
// @Failure 409 {object} response.ErrorResponse "Платёж уже финализирован"
// @Router /payments/{txID}/decision [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.decision"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	callerID, _ := r.Context().Value(middlewarectx.CallerID).(string)
	txID := chi.URLParam(r, "txID")

	var req models.DecisionRequest
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

	approve := req.Action == "confirm"

	rec, err := h.service.Decide(r.Context(), callerID, txID, approve)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrForbidden):
			log.Error("decision by non-administrator", slog.String("caller_id", callerID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, ledger.ErrPaymentNotFound):
			log.Error("payment not found", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, ledger.ErrAlreadyFinalized):
			log.Error("payment already finalized", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already finalized"))
		default:
			log.Error("failed to apply decision", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not apply decision"))
		}
		return
	}

	log.Info("decision applied",
		slog.String("tx_id", txID),
		slog.String("action", req.Action),
	)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"transaction_id": rec.ID,
		"status":         rec.Status,
	}))
}
