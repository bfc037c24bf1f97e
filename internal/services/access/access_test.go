package access

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzuev/channel-pass/internal/models"
	"github.com/nzuev/channel-pass/internal/storage/filestore"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	st, err := filestore.New(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, err)
	return New(st, newNoopLogger())
}

func TestGrant_DurationTariff(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tariff := models.Tariff{ID: "month_1", Price: 500, DurationDays: 30}

	ua, err := m.Grant(ctx, "user-1", tariff, now)
	require.NoError(t, err)

	assert.True(t, ua.HasAccess)
	assert.Equal(t, "month_1", ua.TariffID)
	require.NotNil(t, ua.AccessExpiry)
	// ровно 30 суток от момента выдачи
	assert.True(t, now.Add(30*24*time.Hour).Equal(*ua.AccessExpiry))
}

func TestGrant_PermanentTariff(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tariff := models.Tariff{ID: "lifetime", Price: 5000, DurationDays: 0}

	ua, err := m.Grant(ctx, "user-1", tariff, now)
	require.NoError(t, err)

	assert.True(t, ua.HasAccess)
	assert.Nil(t, ua.AccessExpiry)
}

func TestGrant_OverwritesPrevious(t *testing.T) {
	// последняя оплата побеждает: срок перезаписывается, а не суммируется
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := m.Grant(ctx, "user-1", models.Tariff{ID: "month_3", DurationDays: 90}, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	ua, err := m.Grant(ctx, "user-1", models.Tariff{ID: "month_1", DurationDays: 30}, later)
	require.NoError(t, err)

	assert.Equal(t, "month_1", ua.TariffID)
	require.NotNil(t, ua.AccessExpiry)
	assert.True(t, later.Add(30*24*time.Hour).Equal(*ua.AccessExpiry))
}

func TestRevoke(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := m.Grant(ctx, "user-1", models.Tariff{ID: "month_1", DurationDays: 30}, now)
	require.NoError(t, err)

	ua, err := m.Revoke(ctx, "user-1")
	require.NoError(t, err)

	assert.False(t, ua.HasAccess)
	// тариф и срок остаются историческим следом
	assert.Equal(t, "month_1", ua.TariffID)
	assert.NotNil(t, ua.AccessExpiry)
}

func TestRevoke_UnknownUser(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Revoke(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestGet_UnknownUser(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestSweepExpired(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	granted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := m.Grant(ctx, "expired-a", models.Tariff{ID: "month_1", DurationDays: 30}, granted)
	require.NoError(t, err)
	_, err = m.Grant(ctx, "expired-b", models.Tariff{ID: "month_1", DurationDays: 30}, granted)
	require.NoError(t, err)
	_, err = m.Grant(ctx, "alive", models.Tariff{ID: "month_3", DurationDays: 90}, granted)
	require.NoError(t, err)
	_, err = m.Grant(ctx, "forever", models.Tariff{ID: "lifetime", DurationDays: 0}, granted)
	require.NoError(t, err)

	sweepAt := granted.Add(30*24*time.Hour + time.Second)
	revoked, err := m.SweepExpired(ctx, sweepAt)
	require.NoError(t, err)

	assert.Equal(t, []string{"expired-a", "expired-b"}, revoked)

	for user, want := range map[string]bool{
		"expired-a": false,
		"expired-b": false,
		"alive":     true,
		"forever":   true,
	} {
		ua, err := m.Get(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, want, ua.HasAccess, user)
	}
}

func TestSweepExpired_BoundaryNotRevoked(t *testing.T) {
	// срок, равный моменту зачистки, ещё не истёк: строгое сравнение
	m := newTestManager(t)
	ctx := context.Background()
	granted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := m.Grant(ctx, "user-1", models.Tariff{ID: "month_1", DurationDays: 30}, granted)
	require.NoError(t, err)

	revoked, err := m.SweepExpired(ctx, granted.Add(30*24*time.Hour))
	require.NoError(t, err)

	assert.Empty(t, revoked)
	ua, err := m.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ua.HasAccess)
}

func TestSweepExpired_SecondPassEmpty(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	granted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := m.Grant(ctx, "user-1", models.Tariff{ID: "month_1", DurationDays: 30}, granted)
	require.NoError(t, err)

	sweepAt := granted.Add(31 * 24 * time.Hour)
	revoked, err := m.SweepExpired(ctx, sweepAt)
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, revoked)

	revoked, err = m.SweepExpired(ctx, sweepAt)
	require.NoError(t, err)
	assert.Empty(t, revoked)
}
