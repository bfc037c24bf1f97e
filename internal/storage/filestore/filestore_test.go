package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzuev/channel-pass/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)
	return st
}

func TestStorage_EmptySnapshotOnMissingFile(t *testing.T) {
	st := newTestStorage(t)

	err := st.View(context.Background(), func(s *models.Snapshot) error {
		assert.Equal(t, models.SnapshotVersion, s.Version)
		assert.Empty(t, s.Users)
		assert.Empty(t, s.Payments)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_UpdatePersists(t *testing.T) {
	st := newTestStorage(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	err := st.Update(context.Background(), func(s *models.Snapshot) error {
		s.Payments["TXAAAA1111"] = &models.PaymentRecord{
			ID:        "TXAAAA1111",
			UserID:    "user-1",
			TariffID:  "month_1",
			Amount:    500,
			Status:    models.PaymentPending,
			CreatedAt: created,
		}
		return nil
	})
	require.NoError(t, err)

	err = st.View(context.Background(), func(s *models.Snapshot) error {
		rec, ok := s.Payments["TXAAAA1111"]
		require.True(t, ok)
		assert.Equal(t, "user-1", rec.UserID)
		assert.Equal(t, 500, rec.Amount)
		assert.Equal(t, models.PaymentPending, rec.Status)
		assert.True(t, created.Equal(rec.CreatedAt))
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_UpdateDiscardedOnError(t *testing.T) {
	st := newTestStorage(t)
	wantErr := errors.New("boom")

	err := st.Update(context.Background(), func(s *models.Snapshot) error {
		s.Users["user-1"] = &models.UserAccess{UserID: "user-1", HasAccess: true}
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	err = st.View(context.Background(), func(s *models.Snapshot) error {
		assert.Empty(t, s.Users)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	st, err := New(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)

	err = st.Update(context.Background(), func(s *models.Snapshot) error {
		s.Users["user-1"] = &models.UserAccess{UserID: "user-1", HasAccess: true}
		return nil
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"snapshot.json", "snapshot.json.lock"}, names)
}

func TestStorage_SecondInstanceWaitsForCommit(t *testing.T) {
	// Два экземпляра на одном файле — как API-процесс и sweeper.
	path := filepath.Join(t.TempDir(), "snapshot.json")
	api, err := New(path)
	require.NoError(t, err)
	sweeper, err := New(path)
	require.NoError(t, err)

	done := make(chan error, 1)
	err = api.Update(context.Background(), func(s *models.Snapshot) error {
		go func() {
			done <- sweeper.Update(context.Background(), func(s *models.Snapshot) error {
				delete(s.Users, "expired")
				s.Users["swept-marker"] = &models.UserAccess{UserID: "swept-marker"}
				return nil
			})
		}()
		// второй экземпляр должен упереться в flock и дождаться commit
		time.Sleep(50 * time.Millisecond)
		s.Payments["TXAAAA1111"] = &models.PaymentRecord{
			ID:     "TXAAAA1111",
			UserID: "user-1",
			Status: models.PaymentPending,
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-done)

	err = api.View(context.Background(), func(s *models.Snapshot) error {
		_, ok := s.Payments["TXAAAA1111"]
		assert.True(t, ok, "платёж потерян при конкурентной записи")
		_, ok = s.Users["swept-marker"]
		assert.True(t, ok, "запись sweeper потеряна")
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_ConcurrentInstancesDoNotLoseUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	a, err := New(path)
	require.NoError(t, err)
	b, err := New(path)
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := range writers {
		st := a
		if i%2 == 1 {
			st = b
		}
		wg.Add(1)
		go func(st *Storage, n int) {
			defer wg.Done()
			err := st.Update(context.Background(), func(s *models.Snapshot) error {
				userID := fmt.Sprintf("user-%d", n)
				s.Users[userID] = &models.UserAccess{UserID: userID, HasAccess: true}
				return nil
			})
			assert.NoError(t, err)
		}(st, i)
	}
	wg.Wait()

	err = a.View(context.Background(), func(s *models.Snapshot) error {
		assert.Len(t, s.Users, writers)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_ToleratesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	doc := `{"version":1,"users":{"user-1":{"user_id":"user-1","has_access":true,"unknown_field":42}},"payments":{},"extra":"ignored"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	st, err := New(path)
	require.NoError(t, err)

	err = st.View(context.Background(), func(s *models.Snapshot) error {
		ua, ok := s.Users["user-1"]
		require.True(t, ok)
		assert.True(t, ua.HasAccess)
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_CancelledContext(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.Update(ctx, func(_ *models.Snapshot) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
