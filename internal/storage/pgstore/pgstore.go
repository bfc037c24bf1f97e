// Package pgstore реализует хранилище снимка в PostgreSQL: весь документ
// лежит в одной строке jsonb. Мутация выполняется в транзакции с
// SELECT ... FOR UPDATE, поэтому одновременные писатели (API, свиперы)
// выстраиваются в очередь на уровне базы, а не только процесса.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nzuev/channel-pass/internal/models"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage хранилище снимка в PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// snapshotRowID единственная строка с документом состояния.
const snapshotRowID = 1

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "pgstore.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Update выполняет fn над снимком внутри транзакции с блокировкой строки.
func (s *Storage) Update(ctx context.Context, fn func(*models.Snapshot) error) error {
	const op = "pgstore.Update"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	snapshot, err := loadForUpdate(ctx, tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fn(snapshot); err != nil {
		return err
	}

	doc, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE state_snapshot SET doc = $1, updated_at = now() WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, doc, snapshotRowID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// View выполняет fn над текущим снимком без блокировки строки.
func (s *Storage) View(ctx context.Context, fn func(*models.Snapshot) error) error {
	const op = "pgstore.View"

	var doc []byte
	query := `SELECT doc FROM state_snapshot WHERE id = $1`
	err := s.DB.QueryRowContext(ctx, query, snapshotRowID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return fn(models.NewSnapshot())
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(doc, &snapshot); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	snapshot.Normalize()
	return fn(&snapshot)
}

func loadForUpdate(ctx context.Context, tx *sql.Tx) (*models.Snapshot, error) {
	var doc []byte
	query := `SELECT doc FROM state_snapshot WHERE id = $1 FOR UPDATE`
	err := tx.QueryRowContext(ctx, query, snapshotRowID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		snapshot := models.NewSnapshot()
		seed, err := json.Marshal(snapshot)
		if err != nil {
			return nil, err
		}
		insert := `INSERT INTO state_snapshot (id, doc) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, insert, snapshotRowID, seed); err != nil {
			return nil, err
		}
		return snapshot, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(doc, &snapshot); err != nil {
		return nil, err
	}
	snapshot.Normalize()
	return &snapshot, nil
}
