// Copyright 2025 The WageBound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wagebound

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type OnFailAction string

const (
	OnFailActionWarn  OnFailAction = "warn"
	OnFailActionError OnFailAction = "error"
)

// VerifyFileConfig is the content of a checks file.
type VerifyFileConfig struct {
	Version     string             `yaml:"version"`
	DataSources []DataSource       `yaml:"datasources"`
	Comparisons []ComparisonConfig `yaml:"comparisons,omitempty"`
	Validations []ValidationConfig `yaml:"validations,omitempty"`
	Output      *OutputConfig      `yaml:"output,omitempty"`
}

// OutputConfig tells the pipeline where to persist a run report. Every
// destination is optional.
type OutputConfig struct {
	Excel  string `yaml:"excel,omitempty"`
	CSVDir string `yaml:"csv_dir,omitempty"`
	// DataSource names a postgresql, mysql or sqlite data source that receives
	// the result tables, each named TablePrefix + table.
	DataSource  string `yaml:"datasource,omitempty"`
	TablePrefix string `yaml:"table_prefix,omitempty"`
}

// DatasetRef points at a table within a data source.
type DatasetRef struct {
	DataSource string `yaml:"datasource"`
	// Query is required for database sources.
	Query string `yaml:"query,omitempty"`
	// Sheet overrides the data source's sheet for Excel sources.
	Sheet   string   `yaml:"sheet,omitempty"`
	UseCols []string `yaml:"use_cols,omitempty"`
}

type ComparisonConfig struct {
	Name          string     `yaml:"name"`
	Expected      DatasetRef `yaml:"expected"`
	Actual        DatasetRef `yaml:"actual"`
	KeyCols       []string   `yaml:"key_cols"`
	NumericCols   []string   `yaml:"numeric_cols"`
	DateCols      []string   `yaml:"date_cols,omitempty"`
	DateLayout    DateLayout `yaml:"date_layout,omitempty"`
	Atol          *float64   `yaml:"atol,omitempty"`
	Rtol          *float64   `yaml:"rtol,omitempty"`
	LabelExpected string     `yaml:"label_expected,omitempty"`
	LabelActual   string     `yaml:"label_actual,omitempty"`
}

// VerifyConfig returns the comparator settings, applying DefaultRtol when rtol is omitted.
func (c ComparisonConfig) VerifyConfig() VerifyConfig {
	cfg := VerifyConfig{
		KeyCols:       c.KeyCols,
		NumericCols:   c.NumericCols,
		LabelExpected: c.LabelExpected,
		LabelActual:   c.LabelActual,
		Rtol:          DefaultRtol,
	}
	if c.Atol != nil {
		cfg.Atol = *c.Atol
	}
	if c.Rtol != nil {
		cfg.Rtol = *c.Rtol
	}
	return cfg
}

// VerifyOptions returns the projection and date options of the comparison.
func (c ComparisonConfig) VerifyOptions() []VerifyOption {
	var opts []VerifyOption
	if c.Expected.UseCols != nil || c.Actual.UseCols != nil {
		opts = append(opts, WithUseColumns(c.Expected.UseCols, c.Actual.UseCols))
	}
	if len(c.DateCols) > 0 {
		opts = append(opts, WithDateColumns(c.DateLayout, c.DateCols...))
	}
	return opts
}

type ValidationConfig struct {
	Name    string             `yaml:"name"`
	Dataset DatasetRef         `yaml:"dataset"`
	Profile bool               `yaml:"profile,omitempty"`
	Strict  bool               `yaml:"strict,omitempty"`
	Include []string           `yaml:"include,omitempty"`
	Exclude []string           `yaml:"exclude,omitempty"`
	Checks  []DataQualityCheck `yaml:"checks"`
}

type DataQualityCheck struct {
	Expression  string           `yaml:"-"`
	Description string           `yaml:"desc,omitempty"`
	OnFail      OnFailAction     `yaml:"on_fail,omitempty"`
	ParsedCheck *CheckExpression `yaml:"-"`
}

func (c *DataQualityCheck) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && len(node.Content) >= 2 {
		key := node.Content[0].Value
		value := node.Content[1]
		c.Expression = key

		if value.Kind == yaml.MappingNode {
			var checkDetails struct {
				Desc   string       `yaml:"desc,omitempty"`
				OnFail OnFailAction `yaml:"on_fail,omitempty"`
			}
			if err := value.Decode(&checkDetails); err != nil {
				return err
			}
			c.Description = checkDetails.Desc
			c.OnFail = checkDetails.OnFail
		}
	} else if node.Kind == yaml.ScalarNode {
		c.Expression = node.Value
	} else {
		return fmt.Errorf("line %d: check must be an expression or a mapping", node.Line)
	}

	switch c.OnFail {
	case "", OnFailActionWarn, OnFailActionError:
	default:
		return fmt.Errorf("line %d: unsupported on_fail action: %s", node.Line, c.OnFail)
	}

	parsedCheck, err := ParseCheckExpression(c.Expression)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	c.ParsedCheck = parsedCheck
	return nil
}

// ruleOptions maps on_fail to a rule severity; rules keep their default when unset.
func (c *DataQualityCheck) ruleOptions() []RuleOption {
	var opts []RuleOption
	switch c.OnFail {
	case OnFailActionWarn:
		opts = append(opts, WithSeverity(SeverityWarning))
	case OnFailActionError:
		opts = append(opts, WithSeverity(SeverityError))
	}
	if c.Description != "" {
		opts = append(opts, WithDescription(c.Description))
	}
	return opts
}

func (c *DataQualityCheck) failLevel() string {
	if c.OnFail == OnFailActionWarn {
		return LevelWarning
	}
	return LevelError
}

// BuildChecks splits the checks of a validation into issue-producing rules and
// registry checks. Registry checks are registered under their expression, so
// the same dataset-level expression may appear only once per validation.
func (v ValidationConfig) BuildChecks() ([]ValidationRule, *Registry, error) {
	var rules []ValidationRule
	reg := NewRegistry()
	registered := make(map[string]bool, len(v.Checks))

	for i := range v.Checks {
		check := &v.Checks[i]
		if check.ParsedCheck == nil {
			parsed, err := ParseCheckExpression(check.Expression)
			if err != nil {
				return nil, nil, err
			}
			check.ParsedCheck = parsed
		}

		if check.ParsedCheck.Scope == ScopeRule {
			rule, err := BuildRule(check.ParsedCheck, check.ruleOptions()...)
			if err != nil {
				return nil, nil, fmt.Errorf("check %q: %w", check.Expression, err)
			}
			rules = append(rules, rule)
			continue
		}

		if registered[check.Expression] {
			return nil, nil, fmt.Errorf("validation %s: duplicate check: %s", v.Name, check.Expression)
		}
		registered[check.Expression] = true

		exprCheck := &ExpressionCheck{
			Expression: check.Expression,
			Parsed:     check.ParsedCheck,
			FailLevel:  check.failLevel(),
		}
		if err := reg.Register(check.Expression, exprCheck); err != nil {
			return nil, nil, err
		}
	}
	return rules, reg, nil
}

// Validate checks cross references between data sources and datasets.
func (cfg *VerifyFileConfig) Validate() error {
	known := make(map[string]bool, len(cfg.DataSources))
	for i := range cfg.DataSources {
		ds := &cfg.DataSources[i]
		if err := ds.Validate(); err != nil {
			return err
		}
		if known[ds.ID] {
			return fmt.Errorf("duplicate data source id: %s", ds.ID)
		}
		known[ds.ID] = true
	}

	checkRef := func(owner string, ref DatasetRef) error {
		if !known[ref.DataSource] {
			return fmt.Errorf("%s: unknown data source %q", owner, ref.DataSource)
		}
		return nil
	}

	comparisons := map[string]bool{}
	for _, c := range cfg.Comparisons {
		if c.Name == "" {
			return fmt.Errorf("comparison name is required")
		}
		if comparisons[c.Name] {
			return fmt.Errorf("duplicate comparison name: %s", c.Name)
		}
		comparisons[c.Name] = true
		if err := checkRef("comparison "+c.Name+" expected", c.Expected); err != nil {
			return err
		}
		if err := checkRef("comparison "+c.Name+" actual", c.Actual); err != nil {
			return err
		}
		if err := c.VerifyConfig().Validate(); err != nil {
			return fmt.Errorf("comparison %s: %w", c.Name, err)
		}
	}
	validations := map[string]bool{}
	for _, v := range cfg.Validations {
		if v.Name == "" {
			return fmt.Errorf("validation name is required")
		}
		if validations[v.Name] {
			return fmt.Errorf("duplicate validation name: %s", v.Name)
		}
		validations[v.Name] = true
		if err := checkRef("validation "+v.Name, v.Dataset); err != nil {
			return err
		}
	}

	if out := cfg.Output; out != nil && out.DataSource != "" {
		ds, ok := cfg.DataSource(out.DataSource)
		if !ok {
			return fmt.Errorf("output: unknown data source %q", out.DataSource)
		}
		switch ds.Type {
		case DataSourceTypePostgresql, DataSourceTypeMysql, DataSourceTypeSqlite:
		default:
			return fmt.Errorf("output: data source %s of type %s cannot store results", ds.ID, ds.Type)
		}
	}
	return nil
}

// DataSource returns the data source with the given id.
func (cfg *VerifyFileConfig) DataSource(id string) (*DataSource, bool) {
	for i := range cfg.DataSources {
		if cfg.DataSources[i].ID == id {
			return &cfg.DataSources[i], true
		}
	}
	return nil, false
}

func LoadVerifyFileConfig(fileName string) (*VerifyFileConfig, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg VerifyFileConfig
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse checks file %s: %w", fileName, err)
	}

	// credentials may come from a .env next to the checks file
	if err := LoadDotEnv(filepath.Join(filepath.Dir(fileName), ".env")); err != nil {
		return nil, err
	}

	for i := range cfg.DataSources {
		if err := cfg.DataSources[i].ResolveCredentials(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checks file %s: %w", fileName, err)
	}

	return &cfg, nil
}
