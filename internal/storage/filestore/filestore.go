// Package filestore реализует хранилище снимка в виде JSON-документа
// на диске. Запись атомарна: документ пишется во временный файл рядом
// с целевым и подменяется через rename, поэтому при падении процесса
// на диске остаётся либо старая, либо новая версия целиком.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nzuev/channel-pass/internal/models"
)

// Storage файловое хранилище снимка. Внутри процесса мутации
// сериализуются мьютексом, между процессами — flock на lock-файле
// рядом со снимком: API и воркеры открывают один и тот же файл,
// и без межпроцессной блокировки load→persist двух процессов
// молча теряет одну из записей.
type Storage struct {
	path string
	lock *os.File
	mu   sync.Mutex
}

// New создаёт хранилище по указанному пути. Если файла ещё нет,
// он будет создан при первой записи.
func New(path string) (*Storage, error) {
	const op = "filestore.New"
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{path: path, lock: lock}, nil
}

// Update выполняет fn над снимком и атомарно сохраняет результат.
func (s *Storage) Update(ctx context.Context, fn func(*models.Snapshot) error) error {
	const op = "filestore.Update"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := unix.Flock(int(s.lock.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = unix.Flock(int(s.lock.Fd()), unix.LOCK_UN) }()

	snapshot, err := s.load()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fn(snapshot); err != nil {
		return err
	}
	if err := s.persist(snapshot); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// View выполняет fn над свежезагруженным снимком без сохранения.
func (s *Storage) View(ctx context.Context, fn func(*models.Snapshot) error) error {
	const op = "filestore.View"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := unix.Flock(int(s.lock.Fd()), unix.LOCK_SH); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = unix.Flock(int(s.lock.Fd()), unix.LOCK_UN) }()

	snapshot, err := s.load()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fn(snapshot)
}

func (s *Storage) load() (*models.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	snapshot.Normalize()
	return &snapshot, nil
}

func (s *Storage) persist(snapshot *models.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
