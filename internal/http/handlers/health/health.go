// Package health реализует HTTP-обработчик проверки живости.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/nzuev/channel-pass/internal/http/response"
)

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис работает"
// @Router /health [get]
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(nil))
}
