package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildEventFilter(t *testing.T) {
	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	minPrice := int64(1000)
	maxPrice := int64(5000)

	t.Run("empty filter", func(t *testing.T) {
		where, args := buildEventFilter(EventFilter{})
		require.Empty(t, where)
		require.Nil(t, args)
	})

	t.Run("single condition", func(t *testing.T) {
		where, args := buildEventFilter(EventFilter{Category: "Music"})
		require.Equal(t, " WHERE category = $1", where)
		require.Equal(t, []any{"Music"}, args)
	})

	t.Run("location is a substring match", func(t *testing.T) {
		where, args := buildEventFilter(EventFilter{Location: "Austin"})
		require.Equal(t, " WHERE location ILIKE $1", where)
		require.Equal(t, []any{"%Austin%"}, args)
	})

	t.Run("all conditions keep placeholder order", func(t *testing.T) {
		where, args := buildEventFilter(EventFilter{
			Since:         &since,
			Location:      "Austin",
			Category:      "Music",
			MinPriceCents: &minPrice,
			MaxPriceCents: &maxPrice,
		})
		require.Equal(t,
			" WHERE starts_at >= $1 AND location ILIKE $2 AND category = $3 AND price_cents >= $4 AND price_cents <= $5",
			where)
		require.Equal(t, []any{since, "%Austin%", "Music", minPrice, maxPrice}, args)
	})
}

func TestValidTicketType(t *testing.T) {
	require.True(t, ValidTicketType(TicketGeneral))
	require.True(t, ValidTicketType(TicketVIP))
	require.False(t, ValidTicketType("Backstage"))
	require.False(t, ValidTicketType(""))
}
