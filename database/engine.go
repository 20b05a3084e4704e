/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"

	passwordPlaceholder = "%s"
)

// Engine is a resolved connection target.
type Engine struct {
	Dialect    string
	DriverName string
	DSN        string
	Host       string
	Database   string
	// Redacted is the engine URL with the password masked, safe to log.
	Redacted string
}

// EscapePassword escapes a password for the userinfo part of a URL.
func EscapePassword(password string) string {
	return strings.ReplaceAll(url.QueryEscape(password), "+", "%20")
}

// RenderEngine substitutes the escaped password into the first %s of the
// template. A template without a placeholder is returned unchanged.
func RenderEngine(template, password string) string {
	return strings.Replace(template, passwordPlaceholder, EscapePassword(password), 1)
}

// ParseEngine renders the template and resolves it to a driver and DSN.
// Driver suffixes such as "mysql+pymysql" or "postgresql+asyncpg" are accepted
// and ignored. Timeouts are taken from tune when it is non-nil.
func ParseEngine(template, password string, tune *ConnectionConfig) (*Engine, error) {
	rendered := RenderEngine(template, password)
	u, err := url.Parse(rendered)
	if err != nil {
		return nil, fmt.Errorf("parse engine url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if i := strings.IndexByte(scheme, '+'); i >= 0 {
		scheme = scheme[:i]
	}
	if tune == nil {
		tune = DefaultConnectionConfig()
	}

	var eng *Engine
	switch scheme {
	case "postgres", "postgresql", "pg":
		eng, err = postgresEngine(u, tune)
	case "mysql", "mariadb":
		eng, err = mysqlEngine(u, tune)
	case "sqlite", "sqlite3":
		eng, err = sqliteEngine(u)
	case "":
		return nil, fmt.Errorf("engine url has no scheme")
	default:
		return nil, fmt.Errorf("unsupported engine scheme %q, supported: postgres, mysql, sqlite", u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	eng.Redacted = u.Redacted()
	return eng, nil
}

func postgresEngine(u *url.URL, tune *ConnectionConfig) (*Engine, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("postgres engine requires a host")
	}
	dsn := *u
	dsn.Scheme = "postgres"
	q := dsn.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	if q.Get("connect_timeout") == "" && tune.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(tune.ConnectTimeout.Seconds())))
	}
	dsn.RawQuery = q.Encode()
	return &Engine{
		Dialect:    DialectPostgres,
		DriverName: "postgres",
		DSN:        dsn.String(),
		Host:       u.Host,
		Database:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func mysqlEngine(u *url.URL, tune *ConnectionConfig) (*Engine, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("mysql engine requires a host")
	}
	cfg := mysql.NewConfig()
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	// matched rather than changed rows, so an update without changes still finds its row
	cfg.ClientFoundRows = true
	cfg.Loc = time.Local
	cfg.Timeout = tune.ConnectTimeout
	cfg.ReadTimeout = tune.ReadTimeout
	cfg.WriteTimeout = tune.WriteTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range u.Query() {
		if len(v) > 0 {
			cfg.Params[k] = v[0]
		}
	}
	return &Engine{
		Dialect:    DialectMySQL,
		DriverName: "mysql",
		DSN:        cfg.FormatDSN(),
		Host:       cfg.Addr,
		Database:   cfg.DBName,
	}, nil
}

// sqlite://         -> in-memory
// sqlite:///app.db  -> relative path app.db
// sqlite:////abs.db -> absolute path /abs.db
func sqliteEngine(u *url.URL) (*Engine, error) {
	path := u.Host + strings.TrimPrefix(u.Path, "/")
	dsn := path
	if path == "" || path == ":memory:" {
		path = ":memory:"
		dsn = "file::memory:?cache=shared"
	} else if u.RawQuery != "" {
		dsn = path + "?" + u.RawQuery
	}
	return &Engine{
		Dialect:    DialectSQLite,
		DriverName: sqliteshim.ShimName,
		DSN:        dsn,
		Database:   path,
	}, nil
}
