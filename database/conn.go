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
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalDB      *bun.DB
)

// GetDB returns the process-wide database, nil before InitDB or SetDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		if db := globalFactory.GetDB(); db != nil {
			return db
		}
	}
	return globalDB
}

// SetDB installs an externally built database as the process-wide one.
func SetDB(db *bun.DB) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalDB = db
}

// InitDB validates cfg, connects and, when enabled, creates registered tables.
// A missing engine or password fails here, before anything is served.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(ctx, cfg, cfg.Migrate.EnableMigrateOnStartup)
}

func InitDatabaseWithOptions(ctx context.Context, cfg *Config, runMigrations bool) (*bun.DB, error) {
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db := manager.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)

	globalMu.Lock()
	globalFactory = factory
	globalDB = db
	globalMu.Unlock()
	return db, nil
}

func CloseDB() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory, globalDB = nil, nil
	globalMu.Unlock()
	if factory != nil {
		return factory.Close()
	}
	return nil
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	globalMu.RLock()
	factory := globalFactory
	globalMu.RUnlock()
	if factory != nil {
		return factory.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "database not initialized"}
}

func GetDatabaseStats() *DBStats {
	globalMu.RLock()
	factory := globalFactory
	globalMu.RUnlock()
	if factory != nil {
		return factory.GetStats()
	}
	return &DBStats{}
}

// RunMigrations creates registered tables on the process-wide database.
func RunMigrations(ctx context.Context) error {
	db := GetDB()
	if db == nil {
		return ErrNotConnected
	}
	return NewMigrationManager(db, GetLogger()).RunMigrations(ctx)
}
