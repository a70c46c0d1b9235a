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

package reports

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/Hsu-Huahsing/WageBound"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMysql    Dialect = "mysql"
	DialectSqlite   Dialect = "sqlite"
)

// SQLSink writes tables into a database, replacing tables of the same name.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewSQLSink(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLSink{db: db, dialect: dialect, logger: logger}
}

// WriteTable drops name if it exists, creates it with columns typed after
// t's dtypes and inserts every row, all in one transaction.
func (s *SQLSink) WriteTable(ctx context.Context, name string, t *wagebound.Table) (err error) {
	if len(t.Columns()) == 0 {
		return fmt.Errorf("table %s has no columns", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("failed to roll back", "table", name, "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.quote(name)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, s.createStatement(name, t.Columns())); err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.insertStatement(name, t.ColumnNames()))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(t.Columns()))
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			args[j] = sqlValue(v)
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}

	s.logger.Debug("wrote table", "table", name, "rows", t.Len())
	return nil
}

func (s *SQLSink) createStatement(name string, columns []wagebound.Column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = s.quote(col.Name) + " " + s.columnType(col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", s.quote(name), strings.Join(defs, ", "))
}

func (s *SQLSink) insertStatement(name string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = s.quote(col)
		if s.dialect == DialectPostgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.quote(name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func (s *SQLSink) quote(ident string) string {
	if s.dialect == DialectMysql {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (s *SQLSink) columnType(dtype wagebound.DType) string {
	switch dtype {
	case wagebound.DTypeInt64:
		if s.dialect == DialectSqlite {
			return "INTEGER"
		}
		return "BIGINT"
	case wagebound.DTypeFloat64:
		switch s.dialect {
		case DialectPostgres:
			return "DOUBLE PRECISION"
		case DialectMysql:
			return "DOUBLE"
		}
		return "REAL"
	case wagebound.DTypeBool:
		return "BOOLEAN"
	case wagebound.DTypeDatetime:
		if s.dialect == DialectMysql {
			return "DATETIME"
		}
		return "TIMESTAMP"
	}
	return "TEXT"
}

func sqlValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case map[string]interface{}, []interface{}:
		return fmt.Sprintf("%v", x)
	}
	return v
}
