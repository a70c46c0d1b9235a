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

package sources

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/Hsu-Huahsing/WageBound"
)

// SQLSource loads the result of a query run over a database/sql connection.
type SQLSource struct {
	db     *sql.DB
	query  string
	logger *slog.Logger
}

func NewSQLSource(db *sql.DB, query string, logger *slog.Logger) *SQLSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLSource{db: db, query: query, logger: logger}
}

func (s *SQLSource) Load(ctx context.Context) (*wagebound.Table, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close rows", "error", err)
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePointers := make([]interface{}, len(cols))
		for i := range values {
			valuePointers[i] = &values[i]
		}

		if err := rows.Scan(valuePointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		data = append(data, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	s.logger.Debug("loaded query result", "columns", len(cols), "rows", len(data))

	return wagebound.NewTable(columnsOf(cols), data)
}

func columnsOf(names []string) []wagebound.Column {
	columns := make([]wagebound.Column, len(names))
	for i, name := range names {
		columns[i] = wagebound.Column{Name: name}
	}
	return columns
}
