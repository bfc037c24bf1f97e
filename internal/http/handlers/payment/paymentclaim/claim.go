// Package paymentclaim реализует HTTP-обработчик сигнала «я оплатил».
package paymentclaim

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

// Handler управляет HTTP-запросами о завершении оплаты пользователем.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс сценария обработки сигнала об оплате.
type Service interface {
	ClaimPaid(ctx context.Context, userID, txID string) (bool, error)
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
// @Summary Сообщить об оплате
// @Description Запускает автоматическую проверку платежа; при неудаче платёж уходит на ручную проверку администратору.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param txID path string true "Код транзакции"
// @Param request body models.ClaimRequest true "Пользователь"
// @Success 200 {object} map[string]any "Результат проверки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Чужая транзакция"
// @Failure 404 {object} response.ErrorResponse "Транзакция не найдена"
// @Failure 409 {object} response.ErrorResponse "Платёж уже финализирован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments/{txID}/claim [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.claim"
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

	confirmed, err := h.service.ClaimPaid(r.Context(), req.UserID, txID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrPaymentNotFound):
			log.Error("payment not found", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("payment not found"))
		case errors.Is(err, workflow.ErrForbidden):
			log.Error("claim on foreign transaction", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("forbidden"))
		case errors.Is(err, ledger.ErrAlreadyFinalized):
			log.Error("payment already finalized", slog.String("tx_id", txID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already finalized"))
		default:
			log.Error("failed to process claim", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not process claim"))
		}
		return
	}

	log.Info("claim processed", slog.String("tx_id", txID), slog.Bool("confirmed", confirmed))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"confirmed": confirmed,
	}))
}
