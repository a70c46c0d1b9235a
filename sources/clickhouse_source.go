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
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Hsu-Huahsing/WageBound"
)

// ClickhouseSource loads the result of a query run over a native ClickHouse connection.
type ClickhouseSource struct {
	cnn    driver.Conn
	query  string
	logger *slog.Logger
}

func NewClickhouseSource(cnn driver.Conn, query string, logger *slog.Logger) *ClickhouseSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ClickhouseSource{cnn: cnn, query: query, logger: logger}
}

func (s *ClickhouseSource) Load(ctx context.Context) (*wagebound.Table, error) {
	rows, err := s.cnn.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols := rows.Columns()
	columnTypes := rows.ColumnTypes()

	var data [][]interface{}
	for rows.Next() {
		scanArgs := make([]interface{}, len(cols))
		for i, colType := range columnTypes {
			scanArgs[i] = reflect.New(colType.ScanType()).Interface()
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		values := make([]interface{}, len(cols))
		for i := range scanArgs {
			values[i] = normalizeValue(reflect.ValueOf(scanArgs[i]).Elem().Interface())
		}
		data = append(data, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}

	s.logger.Debug("loaded query result", "columns", len(cols), "rows", len(data))

	return wagebound.NewTable(columnsOf(cols), data)
}
