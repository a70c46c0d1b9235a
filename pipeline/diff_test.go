package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hsu-Huahsing/WageBound"
)

func TestDiffBetweenVersions(t *testing.T) {
	dir := t.TempDir()
	previous := filepath.Join(dir, "v3.csv")
	current := filepath.Join(dir, "v4.csv")
	require.NoError(t, os.WriteFile(previous, []byte("Case_ID,Price\nA01,1000\nA02,2000\nA03,3000\n"), 0o644))
	require.NoError(t, os.WriteFile(current, []byte("Case_ID,Price\nA01,1000.0000001\nA02,2100\nA04,4000\n"), 0o644))

	res, err := DiffBetweenVersions(context.Background(), previous, current, DiffOptions{
		Verify: wagebound.VerifyConfig{KeyCols: []string{"Case_ID"}, NumericCols: []string{"Price"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.DiffRows.Len())
	assert.Equal(t, "A02", res.DiffRows.Value(0, "Case_ID"))
	assert.Equal(t, int64(2000), res.DiffRows.Value(0, "Price_prev"))
	assert.Equal(t, 2100.0, res.DiffRows.Value(0, "Price_cur"))
	assert.Equal(t, 1, res.MissingInActual.Len())
	assert.Equal(t, 1, res.MissingInExpected.Len())
	require.Len(t, res.Columns, 1)
	assert.Equal(t, 100.0, res.Columns[0].MaxAbsDiff)
}

func TestDiffBetweenVersionsMissingFile(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "v4.csv")
	require.NoError(t, os.WriteFile(current, []byte("Case_ID\nA01\n"), 0o644))

	_, err := DiffBetweenVersions(context.Background(), filepath.Join(dir, "v3.xlsx"), current, DiffOptions{
		Verify: wagebound.VerifyConfig{KeyCols: []string{"Case_ID"}},
	})
	assert.ErrorContains(t, err, "previous version")
}
