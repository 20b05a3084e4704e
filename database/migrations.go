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
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc runs inside the migration's transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// MigrationManager applies pending migrations once each, recording them in
// schema_migrations.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	models []SQLModel
	extra  []MigrationItem
}

// NewMigrationManager creates tables for the models in the default registry.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{db: db, logger: logger, models: GetRegisteredModels()}
}

// WithModels replaces the registry snapshot, mostly for tests.
func (mm *MigrationManager) WithModels(models ...SQLModel) *MigrationManager {
	mm.models = models
	return mm
}

// Add appends hand-written migrations, applied after table creation.
func (mm *MigrationManager) Add(items ...MigrationItem) *MigrationManager {
	mm.extra = append(mm.extra, items...)
	return mm
}

func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotConnected
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		SilenceQueryLog(true)
		defer SilenceQueryLog(false)
	}

	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range mm.migrations() {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}
	mm.logger.Info("database migrations completed")
	return nil
}

func (mm *MigrationManager) migrations() []MigrationItem {
	items := make([]MigrationItem, 0, len(mm.models)+len(mm.extra))
	for _, model := range mm.models {
		model := model
		items = append(items, MigrationItem{
			Version:     "000-" + model.Table(),
			Name:        "create_table_" + model.Table(),
			Description: fmt.Sprintf("Create table %s for %T", model.Table(), model.Instance()),
			Up: func(ctx context.Context, db bun.IDB) error {
				return CreateTable(ctx, db, model)
			},
		})
	}
	extra := append([]MigrationItem(nil), mm.extra...)
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].Version < extra[j].Version })
	return append(items, extra...)
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("name = ?", migration.Name).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     migration.Version,
			Name:        migration.Name,
			AppliedAt:   time.Now(),
			Description: migration.Description,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.logger.Info("migration applied", "version", migration.Version, "name", migration.Name)
	return nil
}

// CreateTable creates the model's table under its derived name if missing.
func CreateTable(ctx context.Context, db bun.IDB, model SQLModel) error {
	_, err := db.NewCreateTable().
		Model(model.Instance()).
		ModelTableExpr("?", bun.Ident(model.Table())).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", model.Table(), err)
	}
	return nil
}

// DropTable drops the model's table if present.
func DropTable(ctx context.Context, db bun.IDB, model SQLModel) error {
	_, err := db.NewDropTable().
		Table(model.Table()).
		IfExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
