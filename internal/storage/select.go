package storage

import (
	"fmt"

	"github.com/nzuev/channel-pass/internal/config"
	"github.com/nzuev/channel-pass/internal/migrations"
	"github.com/nzuev/channel-pass/internal/storage/filestore"
	"github.com/nzuev/channel-pass/internal/storage/pgstore"
)

// NewStore выбирает хранилище по конфигурации: файл или Postgres.
// Для Postgres перед стартом применяются миграции. Второе значение
// не nil только для Postgres и служит для закрытия соединения.
func NewStore(cfg config.Storage) (Store, *pgstore.Storage, error) {
	switch cfg.Backend {
	case "postgres":
		db, err := pgstore.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "file", "":
		st, err := filestore.New(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
