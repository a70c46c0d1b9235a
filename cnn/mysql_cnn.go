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
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Hsu-Huahsing/WageBound"
)

const mysqlDefaultPort = 3306

func NewMysqlConnection(connectionCfg wagebound.ConnectionConfig, poolSize int) (*sql.DB, error) {
	port := connectionCfg.Port
	if port == 0 {
		port = mysqlDefaultPort
	}

	cfg := mysql.NewConfig()
	cfg.User = connectionCfg.Username
	cfg.Passwd = connectionCfg.Password
	cfg.Net = "tcp"
	cfg.Addr = hostPort(connectionCfg.Host, port)
	cfg.DBName = connectionCfg.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	return db, nil
}
