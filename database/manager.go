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
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const (
	defaultConnectTimeout = 30 * time.Second
	healthPingTimeout     = 5 * time.Second
)

// pool is one opened engine. It is replaced as a whole on reconnect.
type pool struct {
	engine *Engine
	sqlDB  *sql.DB
	db     *bun.DB
}

type defaultDatabaseManager struct {
	config *ConnectionConfig

	mu     sync.RWMutex
	logger Logger
	pool   *pool

	monitorOnce sync.Once
	stopMonitor context.CancelFunc
}

// NewDatabaseManager returns a bun-backed manager. A nil config falls back
// to DefaultConnectionConfig, which has no engine and fails on Connect.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config: config,
		logger: GetLogger(),
	}
}

// Connect opens and pings the engine. Calling it on a connected manager is
// a no-op.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.pool != nil {
		return nil
	}
	if err := dm.config.Validate(); err != nil {
		return err
	}

	p, err := openPool(dm.config, dm.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	timeout := dm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.db.PingContext(pingCtx); err != nil {
		_ = p.db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.pool = p
	if dm.config.HealthCheckInterval > 0 {
		dm.monitorOnce.Do(dm.startMonitor)
	}
	dm.logger.Info("database connected", "dialect", p.engine.Dialect, "engine", p.engine.Redacted)
	return nil
}

func openPool(cfg *ConnectionConfig, logger Logger) (*pool, error) {
	eng, err := ParseEngine(cfg.Engine, cfg.EnginePassword, cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(eng.DriverName, eng.DSN)
	if err != nil {
		return nil, err
	}

	maxOpen := cfg.MaxOpenConns
	// every connection to :memory: is a separate database
	if eng.Dialect == DialectSQLite && eng.Database == ":memory:" {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, dialectFor(eng.Dialect))
	if cfg.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true), bundebug.FromEnv("BUNDEBUG")))
	} else {
		db.AddQueryHook(NewQueryHook(false))
	}
	if cfg.SlowQueryTime > 0 {
		db.AddQueryHook(&SlowQueryHook{Threshold: cfg.SlowQueryTime, Logger: logger})
	}
	return &pool{engine: eng, sqlDB: sqlDB, db: db}, nil
}

func dialectFor(name string) schema.Dialect {
	switch name {
	case DialectMySQL:
		return mysqldialect.New()
	case DialectSQLite:
		return sqlitedialect.New()
	}
	return pgdialect.New()
}

// Disconnect stops the health monitor and closes the pool.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	stop := dm.stopMonitor
	dm.stopMonitor = nil
	dm.mu.Unlock()
	if stop != nil {
		stop()
	}
	return dm.closePool()
}

func (dm *defaultDatabaseManager) closePool() error {
	dm.mu.Lock()
	p := dm.pool
	dm.pool = nil
	dm.mu.Unlock()
	if p == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		dm.logger.Error("failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("database connection closed")
	return nil
}

// Reconnect replaces the pool. A running health monitor is left alone.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if err := dm.closePool(); err != nil {
		dm.logger.Warn("error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) current() *pool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.pool
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	p := dm.current()
	if p == nil {
		return ErrNotConnected
	}
	return p.db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	if p := dm.current(); p != nil {
		return p.db
	}
	return nil
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	if p := dm.current(); p != nil {
		return p.sqlDB
	}
	return nil
}

// HealthCheck pings the pool and reports the outcome with its pool counters.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	p := dm.current()
	if p == nil {
		status.LastError = ErrNotConnected.Error()
	} else {
		status.Dialect = p.engine.Dialect
		pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
		err := p.db.PingContext(pingCtx)
		cancel()
		status.ResponseTime = time.Since(start)
		if err != nil {
			status.LastError = err.Error()
		} else {
			status.Healthy, status.Connected = true, true
		}
		stats := p.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}
	return status
}

// startMonitor runs HealthCheck every HealthCheckInterval and, when enabled,
// reconnects after a failed check. Consecutive failed reconnects are capped
// by MaxReconnectTries; a healthy check resets the count.
func (dm *defaultDatabaseManager) startMonitor() {
	ctx, cancel := context.WithCancel(context.Background())
	dm.stopMonitor = cancel

	go func() {
		ticker := time.NewTicker(dm.config.HealthCheckInterval)
		defer ticker.Stop()
		tries := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if dm.HealthCheck(ctx).Healthy {
				tries = 0
				continue
			}
			if !dm.config.EnableReconnect {
				continue
			}
			if tries >= dm.config.MaxReconnectTries {
				dm.logger.Error("max reconnect attempts reached", "tries", tries)
				continue
			}
			tries++
			if !sleepCtx(ctx, dm.config.ReconnectInterval) {
				return
			}
			dm.logger.Info("starting database reconnect", "try", tries)
			if err := dm.reconnectWithin(ctx); err != nil {
				dm.logger.Error("reconnect failed", "error", err, "try", tries)
				continue
			}
			dm.logger.Info("reconnect succeeded", "try", tries)
		}
	}()
}

func (dm *defaultDatabaseManager) reconnectWithin(ctx context.Context) error {
	timeout := dm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return dm.Reconnect(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	p := dm.current()
	if p == nil {
		return &DBStats{}
	}
	return statsOf(p.sqlDB.Stats())
}

func statsOf(s sql.DBStats) *DBStats {
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// RunMigrations creates the tables of every registered model.
func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotConnected
	}
	dm.mu.RLock()
	logger := dm.logger
	dm.mu.RUnlock()
	return NewMigrationManager(db, logger).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
