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

package cnn

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Hsu-Huahsing/WageBound"
)

// NewSqliteConnection opens the database file at connectionCfg.Path.
// SQLite allows a single writer, so the pool is capped at one connection.
func NewSqliteConnection(connectionCfg wagebound.ConnectionConfig) (*sql.DB, error) {
	if connectionCfg.Path == "" {
		return nil, fmt.Errorf("sqlite connection requires a path")
	}

	db, err := sql.Open("sqlite", connectionCfg.Path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	return db, nil
}
