package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyOverrideUnset(t *testing.T) {
	table := &Table{}
	require.False(t, ApplyOverride(table, OverrideConfig{}, day(t, "2025-01-18")))
	require.Empty(t, table.Rows)
}

func TestApplyOverrideIncomplete(t *testing.T) {
	table := &Table{}
	cfg := OverrideConfig{
		Date:    "2025-01-16",
		Members: ptr(int64(950)),
		// price and stock missing
	}
	require.False(t, ApplyOverride(table, cfg, day(t, "2025-01-18")))
	require.Empty(t, table.Rows)
}

func TestApplyOverrideRejectsTodayAndFuture(t *testing.T) {
	table := &Table{}
	for _, date := range []string{"2025-01-18", "2025-02-01"} {
		cfg := OverrideConfig{
			Date:    date,
			Members: ptr(int64(950)),
			Price:   ptr(0.095),
			Stock:   ptr(int64(50500)),
		}
		require.False(t, ApplyOverride(table, cfg, day(t, "2025-01-18")), date)
	}
	require.Empty(t, table.Rows)
}

func TestApplyOverrideRejectsBadDate(t *testing.T) {
	table := &Table{}
	cfg := OverrideConfig{
		Date:    "yesterday",
		Members: ptr(int64(950)),
		Price:   ptr(0.095),
		Stock:   ptr(int64(50500)),
	}
	require.False(t, ApplyOverride(table, cfg, day(t, "2025-01-18")))
}

func TestApplyOverrideReplacesExistingRow(t *testing.T) {
	table := &Table{}
	table.Upsert(Observation{Date: "2025-01-16", Members: 1, Price: 0.001, Stock: 1})

	cfg := OverrideConfig{
		Date:    "2025-01-16",
		Members: ptr(int64(950)),
		Price:   ptr(0.095),
		Stock:   ptr(int64(50500)),
	}
	require.True(t, ApplyOverride(table, cfg, day(t, "2025-01-18")))
	require.Len(t, table.Rows, 1)
	require.Equal(t, int64(950), table.Rows[0].Members)
	require.Equal(t, 0.095, table.Rows[0].Price)
}
