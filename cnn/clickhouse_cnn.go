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
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Hsu-Huahsing/WageBound"
)

const clickhouseDefaultPort = 9000

func NewClickhouseConnection(connectionCfg wagebound.ConnectionConfig, poolSize int) (driver.Conn, error) {
	port := connectionCfg.Port
	if port == 0 {
		port = clickhouseDefaultPort
	}

	cnn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{hostPort(connectionCfg.Host, port)},
		Auth: clickhouse.Auth{
			Database: connectionCfg.Database,
			Username: connectionCfg.Username,
			Password: connectionCfg.Password,
		},
		MaxOpenConns: poolSize,
		MaxIdleConns: poolSize,
	})
	return cnn, err
}
