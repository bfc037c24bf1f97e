package tariffs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_OrderPreserved(t *testing.T) {
	c := Default()

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, "month_1", all[0].ID)
	assert.Equal(t, "month_3", all[1].ID)
	assert.Equal(t, "lifetime", all[2].ID)
}

func TestGet(t *testing.T) {
	c := Default()

	tf, err := c.Get("month_1")
	require.NoError(t, err)
	assert.Equal(t, 500, tf.Price)
	assert.Equal(t, 30, tf.DurationDays)

	tf, err = c.Get("lifetime")
	require.NoError(t, err)
	assert.Equal(t, 0, tf.DurationDays)

	_, err = c.Get("year_10")
	require.ErrorIs(t, err, ErrUnknownTariff)
}
