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

// Package sources loads wagebound tables from files and databases.
package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Hsu-Huahsing/WageBound"
	"github.com/Hsu-Huahsing/WageBound/cnn"
)

// TableSource loads one table.
type TableSource interface {
	Load(ctx context.Context) (*wagebound.Table, error)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open resolves ref against its data source and returns a TableSource for it.
// The returned closer releases the underlying connection, if any.
func Open(ds *wagebound.DataSource, ref wagebound.DatasetRef, poolSize int, logger *slog.Logger) (TableSource, io.Closer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ds == nil {
		return nil, nil, fmt.Errorf("data source is required")
	}
	cfg := ds.Configuration

	if !ds.Type.IsFile() && ref.Query == "" {
		return nil, nil, fmt.Errorf("data source %s: query is required for %s", ds.ID, ds.Type)
	}

	switch ds.Type {
	case wagebound.DataSourceTypeCSV:
		src := &CSVSource{
			Path: cfg.Path,
			Options: CSVOptions{
				Encoding:     cfg.Encoding,
				Delimiter:    cfg.Delimiter,
				ParseNumbers: true,
			},
		}
		return src, nopCloser{}, nil

	case wagebound.DataSourceTypeExcel:
		sheet := ref.Sheet
		if sheet == "" {
			sheet = cfg.Sheet
		}
		return &ExcelSource{Path: cfg.Path, Sheet: sheet, ParseNumbers: true}, nopCloser{}, nil

	case wagebound.DataSourceTypePostgresql:
		db, err := cnn.NewPostgresqlConnection(cfg, poolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", ds.ID, err)
		}
		return NewSQLSource(db, ref.Query, logger), db, nil

	case wagebound.DataSourceTypeMysql:
		db, err := cnn.NewMysqlConnection(cfg, poolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", ds.ID, err)
		}
		return NewSQLSource(db, ref.Query, logger), db, nil

	case wagebound.DataSourceTypeSqlite:
		db, err := cnn.NewSqliteConnection(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", ds.ID, err)
		}
		return NewSQLSource(db, ref.Query, logger), db, nil

	case wagebound.DataSourceTypeClickhouse:
		conn, err := cnn.NewClickhouseConnection(cfg, poolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", ds.ID, err)
		}
		return NewClickhouseSource(conn, ref.Query, logger), closerFunc(conn.Close), nil
	}

	return nil, nil, fmt.Errorf("unsupported data source type: %s", ds.Type)
}

// Load opens ref, loads its table and closes the connection.
func Load(ctx context.Context, ds *wagebound.DataSource, ref wagebound.DatasetRef, poolSize int, logger *slog.Logger) (*wagebound.Table, error) {
	src, closer, err := Open(ds, ref, poolSize, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closer.Close(); err != nil && logger != nil {
			logger.Warn("failed to close data source", "datasource", ds.ID, "error", err)
		}
	}()

	t, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load from %s: %w", ds.ID, err)
	}
	return t, nil
}
