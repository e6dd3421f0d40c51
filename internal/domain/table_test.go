package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableBuilder(t *testing.T) {
	t.Run("fixed columns lead, data columns follow sorted", func(t *testing.T) {
		b := NewTableBuilder([]string{"transform", "control_for_z"})
		b.AppendRow(
			map[string]any{"transform": "log", "control_for_z": "yes"},
			map[string]any{"p_value": 0.03, "estimate": 0.5},
		)

		table := b.Build()
		assert.Equal(t, []string{"transform", "control_for_z", "estimate", "p_value"}, table.Columns)
		require.Equal(t, 1, table.NumRows())
		assert.Equal(t, []any{"log", "yes", 0.5, 0.03}, table.Rows[0])
	})

	t.Run("data columns are the union across rows with nil gaps", func(t *testing.T) {
		b := NewTableBuilder([]string{"id"})
		b.AppendRow(map[string]any{"id": 1}, map[string]any{"estimate": 0.5})
		b.AppendRow(map[string]any{"id": 2}, map[string]any{"p_value": 0.02})

		table := b.Build()
		assert.Equal(t, []string{"id", "estimate", "p_value"}, table.Columns)

		cell, ok := table.Cell(0, "p_value")
		require.True(t, ok)
		assert.Nil(t, cell, "fields a row did not produce should be nil")

		cell, ok = table.Cell(1, "estimate")
		require.True(t, ok)
		assert.Nil(t, cell)
	})

	t.Run("failure column appears only when a row failed", func(t *testing.T) {
		clean := NewTableBuilder([]string{"id"})
		clean.AppendRow(map[string]any{"id": 1}, map[string]any{"estimate": 0.5})
		assert.False(t, clean.Build().HasColumn(FailureColumn),
			"an all-success table must not carry the failure column")

		mixed := NewTableBuilder([]string{"id"})
		mixed.AppendRow(map[string]any{"id": 1}, map[string]any{"estimate": 0.5})
		mixed.AppendFailure(map[string]any{"id": 2}, "log transform undefined for non-positive value")

		table := mixed.Build()
		require.True(t, table.HasColumn(FailureColumn))

		cell, ok := table.Cell(0, FailureColumn)
		require.True(t, ok)
		assert.Nil(t, cell, "successful rows carry nil in the failure column")

		cell, ok = table.Cell(1, FailureColumn)
		require.True(t, ok)
		assert.Contains(t, cell, "non-positive")

		est, ok := table.Cell(1, "estimate")
		require.True(t, ok)
		assert.Nil(t, est, "failed rows carry nil data fields")
	})

	t.Run("rows materialize in append order", func(t *testing.T) {
		b := NewTableBuilder([]string{"id"})
		for i := 0; i < 5; i++ {
			b.AppendRow(map[string]any{"id": i}, nil)
		}

		table := b.Build()
		for i := 0; i < 5; i++ {
			cell, ok := table.Cell(i, "id")
			require.True(t, ok)
			assert.Equal(t, i, cell)
		}
	})

	t.Run("empty builder yields an empty table", func(t *testing.T) {
		table := NewTableBuilder([]string{"id"}).Build()
		assert.Equal(t, 0, table.NumRows())
		assert.Equal(t, []string{"id"}, table.Columns)
	})
}

func TestTable_Cell(t *testing.T) {
	b := NewTableBuilder([]string{"id"})
	b.AppendRow(map[string]any{"id": 7}, nil)
	table := b.Build()

	_, ok := table.Cell(0, "missing")
	assert.False(t, ok)
}
