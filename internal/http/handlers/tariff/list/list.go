// Package list реализует HTTP-обработчик списка тарифов.
package list

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/nzuev/channel-pass/internal/http/response"
	"github.com/nzuev/channel-pass/internal/models"
)

// Handler управляет HTTP-запросами на получение списка тарифов.
type Handler struct {
	log     *slog.Logger
	catalog Catalog
}

// Catalog описывает интерфейс каталога тарифов.
type Catalog interface {
	All() []models.Tariff
}

// New создает новый Handler с переданными логгером и каталогом.
func New(log *slog.Logger, catalog Catalog) *Handler {
	return &Handler{log: log, catalog: catalog}
}

// ServeHTTP godoc
// @Summary Список тарифов
// @Description Возвращает доступные тарифы в порядке показа.
// @Tags Tariffs
// @Produce  json
// @Success 200 {object} map[string]any "Список тарифов"
// @Router /tariffs [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"tariffs": h.catalog.All(),
	}))
}
