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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrEngineRequired         = errors.New("database engine is required (database.connection.engine or DB_ENGINE)")
	ErrEnginePasswordRequired = errors.New("database engine password is required (database.connection.engine_password or DB_ENGINE_PASSWORD)")
	ErrNotConnected           = errors.New("database not connected")
)

// AbstractDatabaseManager owns one connection pool and its lifecycle.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	Dialect       string        `json:"dialect,omitempty"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool stats.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes the engine to reach and how to tune its pool.
//
// Engine is a connection URL whose password is the placeholder %s, for
// example postgres://app:%s@db:5432/app. EnginePassword is URL-escaped and
// substituted into it. Both are required.
type ConnectionConfig struct {
	Engine              string        `yaml:"engine" toml:"engine" json:"engine"`
	EnginePassword      string        `yaml:"engine_password" toml:"engine_password" json:"-"`
	MaxIdleConns        int           `yaml:"max_idle_conns" toml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns        int           `yaml:"max_open_conns" toml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time" toml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" toml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout         time.Duration `yaml:"read_timeout" toml:"read_timeout" json:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout" toml:"write_timeout" json:"write_timeout"`
	EnableReconnect     bool          `yaml:"enable_reconnect" toml:"enable_reconnect" json:"enable_reconnect"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval" toml:"reconnect_interval" json:"reconnect_interval"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries" toml:"max_reconnect_tries" json:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" toml:"health_check_interval" json:"health_check_interval"`
	EnableQueryLog      bool          `yaml:"enable_query_log" toml:"enable_query_log" json:"enable_query_log"`
	SlowQueryTime       time.Duration `yaml:"slow_query_time" toml:"slow_query_time" json:"slow_query_time"`
}

// MigrateConfig controls table creation for registered models.
type MigrateConfig struct {
	EnableMigrateOnStartup bool `yaml:"enable_migrate_on_startup" toml:"enable_migrate_on_startup" json:"enable_migrate_on_startup"`
}

type Config struct {
	Connection ConnectionConfig `yaml:"connection" toml:"connection" json:"connection"`
	Migrate    MigrateConfig    `yaml:"migrate" toml:"migrate" json:"migrate"`
}

// DefaultConfig returns a Config with pool defaults and no engine.
func DefaultConfig() *Config {
	return &Config{Connection: *DefaultConnectionConfig()}
}

// DefaultConnectionConfig returns pool and timeout defaults. Connections are
// recycled after an hour.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}

// Validate fails when the engine template or its password is missing, or
// when the engine cannot be resolved to a supported dialect.
func (c *ConnectionConfig) Validate() error {
	if c.Engine == "" {
		return ErrEngineRequired
	}
	if c.EnginePassword == "" {
		return ErrEnginePasswordRequired
	}
	if _, err := ParseEngine(c.Engine, c.EnginePassword, c); err != nil {
		return fmt.Errorf("invalid database engine: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c == nil {
		return ErrEngineRequired
	}
	return c.Connection.Validate()
}
