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
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type DataSourceType string

const (
	DataSourceTypeCSV        DataSourceType = "csv"
	DataSourceTypeExcel      DataSourceType = "excel"
	DataSourceTypePostgresql DataSourceType = "postgresql"
	DataSourceTypeMysql      DataSourceType = "mysql"
	DataSourceTypeClickhouse DataSourceType = "clickhouse"
	DataSourceTypeSqlite     DataSourceType = "sqlite"
)

// DataSource names a place tables are loaded from.
type DataSource struct {
	ID            string           `yaml:"id"`
	Type          DataSourceType   `yaml:"type"`
	Configuration ConnectionConfig `yaml:"configuration"`
}

// ConnectionConfig holds connection and file settings. Database sources use
// the host fields; file sources use Path, Sheet, Encoding and Delimiter.
type ConnectionConfig struct {
	Host      string `yaml:"host,omitempty" env:"HOST"`
	Port      int    `yaml:"port,omitempty" env:"PORT"`
	Username  string `yaml:"username,omitempty" env:"USERNAME"`
	Password  string `yaml:"password,omitempty" env:"PASSWORD"`
	Database  string `yaml:"database,omitempty" env:"DATABASE"`
	Path      string `yaml:"path,omitempty" env:"PATH"`
	Sheet     string `yaml:"sheet,omitempty" env:"SHEET"`
	Encoding  string `yaml:"encoding,omitempty" env:"ENCODING"`
	Delimiter string `yaml:"delimiter,omitempty" env:"DELIMITER"`
}

// IsFile reports whether the source reads a local file.
func (t DataSourceType) IsFile() bool {
	return t == DataSourceTypeCSV || t == DataSourceTypeExcel
}

// EnvPrefix is the environment prefix consulted by ResolveCredentials,
// e.g. WAGEBOUND_HPM_PREV_ for a data source with id "hpm-prev".
func (ds *DataSource) EnvPrefix() string {
	id := strings.ToUpper(ds.ID)
	id = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(id)
	return "WAGEBOUND_" + id + "_"
}

// ResolveCredentials fills empty configuration fields from environment
// variables under EnvPrefix. Values already set in the checks file win.
func (ds *DataSource) ResolveCredentials() error {
	var fromEnv ConnectionConfig
	if err := env.ParseWithOptions(&fromEnv, env.Options{Prefix: ds.EnvPrefix()}); err != nil {
		return fmt.Errorf("failed to read environment for data source %s: %w", ds.ID, err)
	}

	c := &ds.Configuration
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.Host, fromEnv.Host)
	fill(&c.Username, fromEnv.Username)
	fill(&c.Password, fromEnv.Password)
	fill(&c.Database, fromEnv.Database)
	fill(&c.Path, fromEnv.Path)
	fill(&c.Sheet, fromEnv.Sheet)
	fill(&c.Encoding, fromEnv.Encoding)
	fill(&c.Delimiter, fromEnv.Delimiter)
	if c.Port == 0 {
		c.Port = fromEnv.Port
	}
	return nil
}

// Validate checks that the fields required by the source type are present.
func (ds *DataSource) Validate() error {
	if ds.ID == "" {
		return fmt.Errorf("data source id is required")
	}
	switch ds.Type {
	case DataSourceTypeCSV, DataSourceTypeExcel, DataSourceTypeSqlite:
		if ds.Configuration.Path == "" {
			return fmt.Errorf("data source %s: path is required for %s", ds.ID, ds.Type)
		}
	case DataSourceTypePostgresql, DataSourceTypeMysql, DataSourceTypeClickhouse:
		if ds.Configuration.Host == "" {
			return fmt.Errorf("data source %s: host is required for %s", ds.ID, ds.Type)
		}
	default:
		return fmt.Errorf("data source %s: unsupported data source type: %s", ds.ID, ds.Type)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
// LoadVerifyFileConfig calls it for the .env beside the checks file.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
