package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

func TestBuildUpdateOrdersColumnsDeterministically(t *testing.T) {
	clause, args, err := BuildUpdate(map[string]any{
		"price": int64(60000),
		"name":  "Oli mesin 10W-40",
	})
	require.NoError(t, err)
	require.Equal(t, "UPDATE items SET updated_at = NOW(), name = $1, price = $2", clause)
	require.Equal(t, []interface{}{"Oli mesin 10W-40", int64(60000)}, args)
}

func TestBuildUpdateRejectsStockColumn(t *testing.T) {
	_, _, err := BuildUpdate(map[string]any{"stock": int64(99)})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestBuildUpdateRejectsUnknownColumn(t *testing.T) {
	_, _, err := BuildUpdate(map[string]any{"id": int64(1)})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, _, err = BuildUpdate(map[string]any{"name; DROP TABLE items": "x"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestBuildUpdateRejectsEmptyPatch(t *testing.T) {
	_, _, err := BuildUpdate(map[string]any{})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
