// Package stats считает агрегированную статистику по пользователям
// и платежам для административных отчётов. Сводка кэшируется в redis
// с коротким TTL: отчёт дергают часто, а точность до минуты не нужна.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nzuev/channel-pass/internal/lib/sl"
	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/storage"
	"github.com/nzuev/channel-pass/internal/tariffs"
)

// summaryCacheKey ключ кэша сводки.
const summaryCacheKey = "stats:summary"

// summaryTTL время жизни сводки в кэше.
const summaryTTL = time.Minute

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
}

// Service сервис статистики.
type Service struct {
	store   storage.Store
	catalog *tariffs.Catalog
	cache   Cache
	log     *slog.Logger
}

// New создает новый экземпляр Service.
func New(store storage.Store, catalog *tariffs.Catalog, cache Cache, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		cache:   cache,
		log:     log,
	}
}

// Summary возвращает сводку по пользователям и платежам.
func (s *Service) Summary(ctx context.Context) (*models.Stats, error) {
	const op = "stats.Summary"

	var cached models.Stats
	found, err := s.cache.Get(summaryCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read stats from cache", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	stats := &models.Stats{ActiveByTariff: make(map[string]int)}
	for _, t := range s.catalog.All() {
		stats.ActiveByTariff[t.ID] = 0
	}

	err = s.store.View(ctx, func(snapshot *models.Snapshot) error {
		stats.TotalUsers = len(snapshot.Users)
		for _, ua := range snapshot.Users {
			if !ua.HasAccess {
				continue
			}
			stats.ActiveUsers++
			if _, ok := stats.ActiveByTariff[ua.TariffID]; ok {
				stats.ActiveByTariff[ua.TariffID]++
			}
		}
		stats.TotalPayments = len(snapshot.Payments)
		for _, rec := range snapshot.Payments {
			switch rec.Status {
			case models.PaymentConfirmed:
				stats.ConfirmedPayments++
				stats.TotalRevenue += rec.Amount
			case models.PaymentPending:
				stats.PendingPayments++
			case models.PaymentRejected:
				stats.RejectedPayments++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(summaryCacheKey, stats, summaryTTL); err != nil {
		s.log.Warn("failed to cache stats", sl.Err(err))
	}
	return stats, nil
}
