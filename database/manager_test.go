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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type SampleWidget struct {
	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

func newSQLiteManager(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	cfg := DefaultConnectionConfig()
	cfg.Engine = fmt.Sprintf("sqlite:///file:%s?mode=memory&cache=shared", t.Name())
	cfg.EnginePassword = "unused"
	cfg.HealthCheckInterval = 0
	m := NewDatabaseManager(cfg)
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(func() { _ = m.Disconnect() })
	return m
}

func TestManagerConnectAndHealth(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()

	require.NoError(t, m.Ping(ctx))
	status := m.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Equal(t, DialectSQLite, status.Dialect)
	assert.NotNil(t, m.GetDB())
	assert.GreaterOrEqual(t, m.GetStats().OpenConns, 1)
}

func TestManagerConnectRejectsMissingPassword(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Engine = "sqlite://"
	err := NewDatabaseManager(cfg).Connect(context.Background())
	assert.ErrorIs(t, err, ErrEnginePasswordRequired)
}

func TestManagerDisconnect(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Disconnect())
	assert.Nil(t, m.GetDB())
	assert.ErrorIs(t, m.Ping(context.Background()), ErrNotConnected)
	assert.False(t, m.HealthCheck(context.Background()).Healthy)
}

func TestMigrationsCreateRegisteredTablesOnce(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	db := m.GetDB()

	model := NewModelAdapter((*SampleWidget)(nil), 0)
	assert.Equal(t, "sample_widget", model.Table())

	mm := NewMigrationManager(db, nil).WithModels(model)
	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))

	_, err := db.NewRaw("INSERT INTO sample_widget (name) VALUES (?)", "gear").Exec(ctx)
	require.NoError(t, err)

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "create_table_sample_widget", applied[0].Name)

	require.NoError(t, DropTable(ctx, db, model))
}

func TestMigrationsRunExtraItems(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()

	ran := 0
	mm := NewMigrationManager(m.GetDB(), nil).WithModels().Add(MigrationItem{
		Version: "100",
		Name:    "count_me",
		Up: func(ctx context.Context, db bun.IDB) error {
			ran++
			return nil
		},
	})
	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))
	assert.Equal(t, 1, ran)
}

func TestModelRegistryOrdersByPriority(t *testing.T) {
	r := newModelRegistry()
	r.Register(NewModelAdapter((*SampleWidget)(nil), 5))
	r.Register(NewModelAdapter((*Migration)(nil), 1))
	models := r.Models()
	require.Len(t, models, 2)
	assert.Equal(t, "migration", models[0].Table())
	assert.Equal(t, "sample_widget", models[1].Table())
}
