// Package storage определяет абстракцию хранилища состояния.
// Всё состояние системы — один документ (models.Snapshot), который
// загружается и сохраняется целиком. Любая мутация проходит через Update:
// чтение-изменение-запись как одна критическая секция, так что частично
// применённые изменения не видны ни читателям, ни при падении процесса.
package storage

import (
	"context"

	"github.com/nzuev/channel-pass/internal/models"
)

// Store хранилище снимка состояния.
//
// Update выполняет fn над актуальным снимком под блокировкой записи.
// Если fn возвращает ошибку, снимок не сохраняется и ошибка возвращается
// вызывающему без изменений — это единственный механизм отката.
// Ошибка самой записи фатальна для операции: состояние на диске остаётся
// прежним, вызывающий обязан прокинуть ошибку оператору.
//
// View выполняет fn над снимком только для чтения; fn не должна сохранять
// ссылки на содержимое снимка после возврата.
type Store interface {
	Update(ctx context.Context, fn func(*models.Snapshot) error) error
	View(ctx context.Context, fn func(*models.Snapshot) error) error
}
