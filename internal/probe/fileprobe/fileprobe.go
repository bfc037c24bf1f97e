// Package fileprobe реализует проверку платежа по файлу-маркеру:
// платёж считается поступившим, если в каталоге платежей лежит файл
// с именем кода транзакции. Файл удаляется после срабатывания.
// Это заглушка на месте интеграции с платёжным шлюзом: реальная
// проверка подключается заменой реализации интерфейса.
package fileprobe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Probe проверка платежа по файлу-маркеру.
type Probe struct {
	dir string
}

// New создаёт пробу над каталогом dir, создавая его при необходимости.
func New(dir string) (*Probe, error) {
	const op = "fileprobe.New"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Probe{dir: dir}, nil
}

// Check возвращает true, если маркер платежа существует. Маркер
// одноразовый: после положительного ответа он удаляется.
func (p *Probe) Check(_ context.Context, txID string) (bool, error) {
	const op = "fileprobe.Check"

	marker := filepath.Join(p.dir, txID+".txt")
	if _, err := os.Stat(marker); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Remove(marker); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
