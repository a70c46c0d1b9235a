package wagebound

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const verifyFileYAML = `
version: "1"
datasources:
  - id: prev
    type: csv
    configuration:
      path: data/hpm_prev.csv
      encoding: big5
  - id: cur
    type: excel
    configuration:
      path: data/hpm_cur.xlsx
      sheet: output
  - id: results
    type: sqlite
    configuration:
      path: results.db
comparisons:
  - name: hpm_vs_valuation
    expected: {datasource: prev, use_cols: [Funding_Amt]}
    actual: {datasource: cur, sheet: detail}
    key_cols: [Case_ID]
    numeric_cols: [Funding_Amt]
    date_cols: [Apply_Date]
    date_layout: roc
    atol: 0.01
validations:
  - name: hpm_input
    dataset: {datasource: prev}
    profile: true
    exclude: ["row_count > 1000000"]
    checks:
      - required_columns(Case_ID, Funding_Amt)
      - range(Funding_Amt) between 0 and 100000000:
          desc: funding amount plausible
          on_fail: warn
      - row_count > 0
      - row_count > 1000000
output:
  excel: out/report.xlsx
  datasource: results
  table_prefix: run_
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadVerifyFileConfig(t *testing.T) {
	cfg, err := LoadVerifyFileConfig(writeConfig(t, verifyFileYAML))
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	require.Len(t, cfg.DataSources, 3)
	assert.Equal(t, DataSourceTypeCSV, cfg.DataSources[0].Type)
	assert.Equal(t, "big5", cfg.DataSources[0].Configuration.Encoding)
	assert.Equal(t, "output", cfg.DataSources[1].Configuration.Sheet)

	require.Len(t, cfg.Comparisons, 1)
	c := cfg.Comparisons[0]
	assert.Equal(t, []string{"Funding_Amt"}, c.Expected.UseCols)
	assert.Equal(t, "detail", c.Actual.Sheet)
	assert.Equal(t, DateLayoutROC, c.DateLayout)

	vc := c.VerifyConfig()
	assert.Equal(t, []string{"Case_ID"}, vc.KeyCols)
	assert.Equal(t, 0.01, vc.Atol)
	assert.Equal(t, DefaultRtol, vc.Rtol)
	assert.Len(t, c.VerifyOptions(), 2)

	require.Len(t, cfg.Validations, 1)
	v := cfg.Validations[0]
	assert.True(t, v.Profile)
	require.Len(t, v.Checks, 4)
	assert.Equal(t, "range(Funding_Amt) between 0 and 100000000", v.Checks[1].Expression)
	assert.Equal(t, "funding amount plausible", v.Checks[1].Description)
	assert.Equal(t, OnFailActionWarn, v.Checks[1].OnFail)
	assert.Equal(t, ScopeRule, v.Checks[1].ParsedCheck.Scope)
	assert.Equal(t, ScopeTable, v.Checks[2].ParsedCheck.Scope)

	require.NotNil(t, cfg.Output)
	assert.Equal(t, "run_", cfg.Output.TablePrefix)

	ds, ok := cfg.DataSource("cur")
	require.True(t, ok)
	assert.Equal(t, DataSourceTypeExcel, ds.Type)
	_, ok = cfg.DataSource("nope")
	assert.False(t, ok)
}

func TestComparisonConfigExplicitRtol(t *testing.T) {
	var c ComparisonConfig
	require.NoError(t, yaml.Unmarshal([]byte("name: x\nkey_cols: [id]\nrtol: 0\n"), &c))
	assert.Equal(t, 0.0, c.VerifyConfig().Rtol)
	assert.Empty(t, c.VerifyOptions())
}

func TestValidationConfigBuildChecks(t *testing.T) {
	cfg, err := LoadVerifyFileConfig(writeConfig(t, verifyFileYAML))
	require.NoError(t, err)

	rules, reg, err := cfg.Validations[0].BuildChecks()
	require.NoError(t, err)

	require.Len(t, rules, 2)
	assert.Equal(t, RuleIDRequiredColumns, rules[0].ID)
	assert.Equal(t, SeverityError, rules[0].Severity)
	assert.Equal(t, RuleIDNumericRange, rules[1].ID)
	assert.Equal(t, SeverityWarning, rules[1].Severity)
	assert.Equal(t, "funding amount plausible", rules[1].Description)

	assert.Equal(t, []string{"row_count > 0", "row_count > 1000000"}, reg.Names())
}

func TestValidationConfigBuildChecksDuplicate(t *testing.T) {
	cfg, err := LoadVerifyFileConfig(writeConfig(t, `
datasources:
  - {id: a, type: csv, configuration: {path: a.csv}}
validations:
  - name: payroll
    dataset: {datasource: a}
    checks:
      - required_columns(id)
      - required_columns(id)
      - row_count > 0
      - row_count > 0:
          on_fail: warn
`))
	require.NoError(t, err)

	_, _, err = cfg.Validations[0].BuildChecks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate check: row_count > 0")
	assert.Contains(t, err.Error(), "payroll")
}

func TestLoadVerifyFileConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown data source",
			yaml: `
datasources:
  - {id: a, type: csv, configuration: {path: a.csv}}
validations:
  - name: v
    dataset: {datasource: b}
    checks: [row_count > 0]
`,
			wantErr: `unknown data source "b"`,
		},
		{
			name: "duplicate data source",
			yaml: `
datasources:
  - {id: a, type: csv, configuration: {path: a.csv}}
  - {id: a, type: csv, configuration: {path: b.csv}}
`,
			wantErr: "duplicate data source id: a",
		},
		{
			name: "missing path",
			yaml: `
datasources:
  - {id: a, type: excel}
`,
			wantErr: "path is required",
		},
		{
			name: "unsupported type",
			yaml: `
datasources:
  - {id: a, type: oracle, configuration: {host: h}}
`,
			wantErr: "unsupported data source type: oracle",
		},
		{
			name: "invalid on_fail",
			yaml: `
validations:
  - name: v
    checks:
      - row_count > 0:
          on_fail: explode
`,
			wantErr: "unsupported on_fail action: explode",
		},
		{
			name: "unknown check function",
			yaml: `
validations:
  - name: v
    checks: [freshness(ts) < 3d]
`,
			wantErr: "unknown check function: freshness",
		},
		{
			name: "comparison without key columns",
			yaml: `
datasources:
  - {id: a, type: csv, configuration: {path: a.csv}}
comparisons:
  - {name: c, expected: {datasource: a}, actual: {datasource: a}}
`,
			wantErr: ErrNoKeyColumns.Error(),
		},
		{
			name: "duplicate comparison",
			yaml: `
datasources:
  - {id: a, type: csv, configuration: {path: a.csv}}
comparisons:
  - {name: c, expected: {datasource: a}, actual: {datasource: a}, key_cols: [id]}
  - {name: c, expected: {datasource: a}, actual: {datasource: a}, key_cols: [id]}
`,
			wantErr: "duplicate comparison name: c",
		},
		{
			name: "output to a file source",
			yaml: `
datasources:
  - {id: a, type: csv, configuration: {path: a.csv}}
output:
  datasource: a
`,
			wantErr: "cannot store results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadVerifyFileConfig(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadVerifyFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDataQualityCheckUnmarshalYAML(t *testing.T) {
	yamlData := `
checks:
  - not_null(id)
  - row_count > 0:
      desc: "Table should not be empty"
  - max(price) < 1000000:
      on_fail: error
`
	var config struct {
		Checks []DataQualityCheck `yaml:"checks"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(yamlData), &config))
	require.Len(t, config.Checks, 3)

	assert.Equal(t, "not_null(id)", config.Checks[0].Expression)
	assert.Equal(t, ScopeRule, config.Checks[0].ParsedCheck.Scope)
	assert.Equal(t, "Table should not be empty", config.Checks[1].Description)
	assert.Equal(t, OnFailActionError, config.Checks[2].OnFail)
	assert.Equal(t, 1000000, config.Checks[2].ParsedCheck.ThresholdValue)

	var bad struct {
		Checks []DataQualityCheck `yaml:"checks"`
	}
	assert.Error(t, yaml.Unmarshal([]byte("checks:\n  - [a, b]\n"), &bad))
}

func TestDataSourceResolveCredentials(t *testing.T) {
	t.Setenv("WAGEBOUND_HPM_DB_HOST", "db.internal")
	t.Setenv("WAGEBOUND_HPM_DB_PORT", "5433")
	t.Setenv("WAGEBOUND_HPM_DB_PASSWORD", "s3cret")
	t.Setenv("WAGEBOUND_HPM_DB_USERNAME", "from-env")

	cfg, err := LoadVerifyFileConfig(writeConfig(t, `
datasources:
  - id: hpm-db
    type: postgresql
    configuration:
      username: from-file
      database: hpm
`))
	require.NoError(t, err)

	ds := cfg.DataSources[0]
	assert.Equal(t, "WAGEBOUND_HPM_DB_", ds.EnvPrefix())
	assert.Equal(t, "db.internal", ds.Configuration.Host)
	assert.Equal(t, 5433, ds.Configuration.Port)
	assert.Equal(t, "s3cret", ds.Configuration.Password)
	assert.Equal(t, "from-file", ds.Configuration.Username, "file values win over the environment")
	assert.Equal(t, "hpm", ds.Configuration.Database)
}

func TestDataSourceHostRequired(t *testing.T) {
	_, err := LoadVerifyFileConfig(writeConfig(t, `
datasources:
  - {id: warehouse, type: clickhouse}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WAGEBOUND_DOTENV_TEST_HOST=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("WAGEBOUND_DOTENV_TEST_HOST") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("WAGEBOUND_DOTENV_TEST_HOST"))

	ds := DataSource{ID: "dotenv-test", Type: DataSourceTypeMysql}
	require.NoError(t, ds.ResolveCredentials())
	assert.Equal(t, "from-dotenv", ds.Configuration.Host)
}

func TestLoadVerifyFileConfigReadsDotEnvBesideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("WAGEBOUND_ENVFILE_DB_HOST=db.from-envfile\nWAGEBOUND_ENVFILE_DB_PORT=3307\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("WAGEBOUND_ENVFILE_DB_HOST")
		os.Unsetenv("WAGEBOUND_ENVFILE_DB_PORT")
	})

	path := filepath.Join(dir, "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datasources:
  - id: envfile-db
    type: mysql
    configuration:
      database: payroll
`), 0o644))

	cfg, err := LoadVerifyFileConfig(path)
	require.NoError(t, err)

	ds := cfg.DataSources[0]
	assert.Equal(t, "db.from-envfile", ds.Configuration.Host)
	assert.Equal(t, 3307, ds.Configuration.Port)
	assert.Equal(t, "payroll", ds.Configuration.Database)
}
