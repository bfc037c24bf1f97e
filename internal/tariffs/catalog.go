// Package tariffs содержит статический каталог тарифов закрытого канала.
// Каталог неизменяем после создания: цены действующих платежей копируются
// из него в момент выбора тарифа и дальше живут своей жизнью.
package tariffs

import (
	"errors"

	"github.com/nzuev/channel-pass/internal/models"
)

// ErrUnknownTariff возвращается при обращении к несуществующему тарифу.
var ErrUnknownTariff = errors.New("unknown tariff")

// Catalog отображение id тарифа в его описание плюс порядок показа.
type Catalog struct {
	byID  map[string]models.Tariff
	order []string
}

// Default возвращает каталог тарифов закрытого канала.
func Default() *Catalog {
	return New([]models.Tariff{
		{
			ID:           "month_1",
			Name:         "1 месяц",
			Price:        500,
			Description:  "Доступ к закрытому каналу на 1 месяц",
			DurationDays: 30,
		},
		{
			ID:           "month_3",
			Name:         "3 месяца",
			Price:        1500,
			Description:  "Доступ к закрытому каналу на 3 месяца + бонусные материалы",
			DurationDays: 90,
		},
		{
			ID:           "lifetime",
			Name:         "Навсегда",
			Price:        5000,
			Description:  "Пожизненный доступ к каналу + все обновления + персональная консультация",
			DurationDays: 0,
		},
	})
}

// New собирает каталог из списка тарифов, сохраняя порядок показа.
func New(list []models.Tariff) *Catalog {
	c := &Catalog{byID: make(map[string]models.Tariff, len(list))}
	for _, t := range list {
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c
}

// Get возвращает тариф по id либо ErrUnknownTariff.
func (c *Catalog) Get(id string) (models.Tariff, error) {
	t, ok := c.byID[id]
	if !ok {
		return models.Tariff{}, ErrUnknownTariff
	}
	return t, nil
}

// All возвращает тарифы в порядке показа.
func (c *Catalog) All() []models.Tariff {
	out := make([]models.Tariff, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
