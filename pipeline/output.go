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

package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Hsu-Huahsing/WageBound"
	"github.com/Hsu-Huahsing/WageBound/cnn"
	"github.com/Hsu-Huahsing/WageBound/reports"
)

func (r *Runner) persist(ctx context.Context, cfg *wagebound.VerifyFileConfig, report *RunReport) error {
	out := cfg.Output

	if out.Excel != "" {
		if err := report.WriteExcel(out.Excel); err != nil {
			return err
		}
		r.logger.Info("wrote Excel report", "path", out.Excel)
	}

	if out.CSVDir != "" {
		paths, err := report.WriteCSV(out.CSVDir)
		if err != nil {
			return err
		}
		r.logger.Info("wrote CSV report", "dir", out.CSVDir, "files", len(paths))
	}

	if out.DataSource != "" {
		ds, ok := cfg.DataSource(out.DataSource)
		if !ok {
			return fmt.Errorf("unknown output data source %q", out.DataSource)
		}
		db, dialect, err := openResultsDB(ds, r.opts.PoolSize)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				r.logger.Warn("failed to close results database", "datasource", ds.ID, "error", err)
			}
		}()

		sink := reports.NewSQLSink(db, dialect, r.logger)
		if err := report.WriteSQL(ctx, sink, out.TablePrefix); err != nil {
			return err
		}
		r.logger.Info("wrote report tables", "datasource", ds.ID, "prefix", out.TablePrefix)
	}

	return nil
}

func openResultsDB(ds *wagebound.DataSource, poolSize int) (*sql.DB, reports.Dialect, error) {
	switch ds.Type {
	case wagebound.DataSourceTypePostgresql:
		db, err := cnn.NewPostgresqlConnection(ds.Configuration, poolSize)
		return db, reports.DialectPostgres, err
	case wagebound.DataSourceTypeMysql:
		db, err := cnn.NewMysqlConnection(ds.Configuration, poolSize)
		return db, reports.DialectMysql, err
	case wagebound.DataSourceTypeSqlite:
		db, err := cnn.NewSqliteConnection(ds.Configuration)
		return db, reports.DialectSqlite, err
	}
	return nil, "", fmt.Errorf("data source %s of type %s cannot store results", ds.ID, ds.Type)
}
