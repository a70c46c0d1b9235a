package reports

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hsu-Huahsing/WageBound"
)

func TestWriteCSV(t *testing.T) {
	tbl, err := wagebound.NewTable(
		[]wagebound.Column{
			{Name: "id"}, {Name: "amt"}, {Name: "ok"}, {Name: "apply_date"}, {Name: "note"},
		},
		[][]interface{}{
			{int64(1), 1234567.5, true, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "a,b"},
			{int64(2), math.NaN(), false, nil, nil},
		},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, CSVOptions{}))
	assert.Equal(t,
		"id,amt,ok,apply_date,note\n"+
			"1,1234567.5,true,2024-01-05,\"a,b\"\n"+
			"2,,false,,\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, tbl, CSVOptions{BOM: true}))
	assert.True(t, strings.HasPrefix(buf.String(), "\ufeffid,"))
}

func TestWriteVerifyResultCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteVerifyResultCSV(dir, "c01_hpm", verifyResult(t), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "c01_hpm_summary.csv"),
		filepath.Join(dir, "c01_hpm_diff_rows.csv"),
		filepath.Join(dir, "c01_hpm_missing_in_expected.csv"),
		filepath.Join(dir, "c01_hpm_missing_in_actual.csv"),
	}, paths)

	summary, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "col,n_diff_rows,max_abs_diff,mean_abs_diff\namt,1,50,50\n", string(summary))
}
