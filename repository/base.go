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

package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

var ErrNilEntity = errors.New("entity is nil")

type Option func(*options)

type options struct {
	logger  database.Logger
	guarded map[string]struct{}
}

// WithLogger replaces the default "CRUD" logger.
func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGuardedFields drops the named keys from every update payload. By
// default nothing is guarded, so a payload may overwrite id or timestamps.
func WithGuardedFields(keys ...string) Option {
	return func(o *options) {
		for _, k := range keys {
			o.guarded[k] = struct{}{}
		}
	}
}

// Repository implements CrudRepository for one entity type over bun. It
// holds no mutable state and is safe for concurrent use.
type Repository[T entity.Model, C any, U any] struct {
	db         bun.IDB
	fromCreate func(*C) *T
	table      *schema.Table
	name       string
	logger     database.Logger
	guarded    map[string]struct{}
	nullable   map[string]bool
}

var (
	_ CrudRepository[entity.Base, struct{}, struct{}] = (*Repository[entity.Base, struct{}, struct{}])(nil)
	_ PageQueryRepository[entity.Base]                 = (*Repository[entity.Base, struct{}, struct{}])(nil)
	_ FilterRepository[entity.Base]                    = (*Repository[entity.Base, struct{}, struct{}])(nil)
)

// New binds a repository to db. fromCreate maps a create schema to a new,
// unsaved entity.
func New[T entity.Model, C any, U any](db bun.IDB, fromCreate func(*C) *T, opts ...Option) *Repository[T, C, U] {
	o := &options{guarded: map[string]struct{}{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = database.NewNamedLogger("CRUD")
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	return &Repository[T, C, U]{
		db:         db,
		fromCreate: fromCreate,
		table:      db.Dialect().Tables().Get(typ),
		name:       entity.TableNameFor(typ),
		logger:     o.logger,
		guarded:    o.guarded,
		nullable:   nullableFields(typ),
	}
}

// WithTx returns a copy whose operations run inside tx. Commit stays with
// the caller.
func (r *Repository[T, C, U]) WithTx(tx bun.Tx) *Repository[T, C, U] {
	clone := *r
	clone.db = tx
	return &clone
}

// Table returns the table name derived from T.
func (r *Repository[T, C, U]) Table() string { return r.name }

func (r *Repository[T, C, U]) DB() bun.IDB { return r.db }

// NewSelect starts a SELECT over T's table; pass the destination to Model.
func (r *Repository[T, C, U]) NewSelect() *bun.SelectQuery {
	return r.selectFrom(r.db, (*T)(nil))
}

func (r *Repository[T, C, U]) selectFrom(db bun.IDB, model any) *bun.SelectQuery {
	return db.NewSelect().Model(model).ModelTableExpr("? AS ?", bun.Ident(r.name), bun.Ident(r.table.Alias))
}

func (r *Repository[T, C, U]) tableExpr() (string, bun.Ident) {
	return "?", bun.Ident(r.name)
}

func pk() bun.Ident { return bun.Ident(entity.ColumnID) }

func (r *Repository[T, C, U]) Get(ctx context.Context, id int64) (*T, error) {
	obj := new(T)
	err := r.selectFrom(r.db, obj).Where("? = ?", pk(), id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (r *Repository[T, C, U]) BatchGet(ctx context.Context, ids []int64) ([]*T, error) {
	entities := make([]*T, 0, len(ids))
	if len(ids) == 0 {
		return entities, nil
	}
	err := r.selectFrom(r.db, &entities).
		Where("? IN (?)", pk(), bun.In(lo.Uniq(ids))).
		OrderExpr("? ASC", pk()).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entities, nil
}

// List with a zero limit returns nothing without querying.
func (r *Repository[T, C, U]) List(ctx context.Context, req *types.ListRequest) ([]*T, error) {
	entities := make([]*T, 0)
	limit := req.GetLimit()
	if limit == 0 {
		return entities, nil
	}
	err := r.selectFrom(r.db, &entities).
		OrderExpr("? ASC", pk()).
		Offset(req.GetSkip()).
		Limit(limit).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entities, nil
}

func (r *Repository[T, C, U]) Find(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	query := r.selectFrom(r.db, &entities).OrderExpr("? ASC", pk())
	if filter != nil && filter.Schema != "" {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return entities, nil
}

func (r *Repository[T, C, U]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.selectFrom(r.db, &entities)
	if f := pageRequest.GetFilter(); f != nil && f.Schema != "" {
		query = query.Where(f.Schema, f.Args...)
	}
	pagination := types.NewPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	if len(pageRequest.Orders) > 0 {
		query = query.Order(pageRequest.Orders...)
	} else {
		query = query.OrderExpr("? ASC", pk())
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	pagination.Total = total
	if entities != nil {
		pagination.Items = entities
	}
	return pagination, nil
}

func (r *Repository[T, C, U]) Create(ctx context.Context, in *C) (*T, error) {
	obj := r.fromCreate(in)
	if obj == nil {
		return nil, ErrNilEntity
	}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(obj).ModelTableExpr(r.tableExpr()).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.refresh(ctx, obj)
}

func (r *Repository[T, C, U]) newEntities(in []C) ([]*T, error) {
	entities := lo.Map(in, func(c C, _ int) *T { return r.fromCreate(&c) })
	if lo.Contains(entities, nil) {
		return nil, ErrNilEntity
	}
	return entities, nil
}

func (r *Repository[T, C, U]) BatchCreate(ctx context.Context, in []C) ([]*T, error) {
	entities, err := r.newEntities(in)
	if err != nil || len(entities) == 0 {
		return entities, err
	}
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&entities).ModelTableExpr(r.tableExpr()).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *Repository[T, C, U]) BatchCreateSilently(ctx context.Context, in []C) error {
	entities, err := r.newEntities(in)
	if err != nil || len(entities) == 0 {
		return err
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&entities).
			ModelTableExpr(r.tableExpr()).
			Returning("NULL").
			Exec(ctx)
		return err
	})
}

func (r *Repository[T, C, U]) Update(ctx context.Context, e *T, in *U) (*T, error) {
	p, err := PatchOf(in)
	if err != nil {
		return nil, err
	}
	return r.UpdateFields(ctx, e, p)
}

// UpdateFields walks e's own serialized fields and overwrites those present
// in p. Only the touched columns are written, matched on e's original id. A
// patched id moves the row. When no row has e's id the result is nil.
func (r *Repository[T, C, U]) UpdateFields(ctx context.Context, e *T, p Patch) (*T, error) {
	if e == nil {
		return nil, ErrNilEntity
	}
	originID := (*e).GetID()
	merged, touched, err := r.merge(e, p)
	if err != nil {
		return nil, err
	}
	newID := (*merged).GetID()
	columns := r.columns(touched)
	// bun leaves the primary key out of Column, so the id is set separately
	moveID := lo.Contains(columns, entity.ColumnID) && newID != originID
	columns = lo.Without(columns, entity.ColumnID)
	if len(columns) == 0 && !moveID {
		return r.Get(ctx, originID)
	}
	if lo.Contains(touched, entity.ColumnLastModifiedTime) {
		ctx = entity.KeepLastModified(ctx)
	} else if _, ok := r.table.FieldMap[entity.ColumnLastModifiedTime]; ok {
		columns = append(columns, entity.ColumnLastModifiedTime)
	}

	found := false
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(columns) > 0 {
			res, err := tx.NewUpdate().
				Model(merged).
				ModelTableExpr(r.tableExpr()).
				Column(columns...).
				Where("? = ?", pk(), originID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if found, err = affected(res); err != nil || !found {
				return err
			}
		}
		if moveID {
			res, err := tx.NewUpdate().
				Model((*T)(nil)).
				ModelTableExpr(r.tableExpr()).
				Set("? = ?", pk(), newID).
				Where("? = ?", pk(), originID).
				Exec(ctx)
			if err != nil {
				return err
			}
			found, err = affected(res)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		r.logger.Warn(fmt.Sprintf("update: %d not found in table %s", originID, r.name), "table", r.name, "id", originID)
		return nil, nil
	}
	return r.refresh(ctx, merged)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *Repository[T, C, U]) UpdateByID(ctx context.Context, id int64, in *U) (*T, error) {
	p, err := PatchOf(in)
	if err != nil {
		return nil, err
	}
	return r.UpdateFieldsByID(ctx, id, p)
}

func (r *Repository[T, C, U]) UpdateFieldsByID(ctx context.Context, id int64, p Patch) (*T, error) {
	obj, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		r.logger.Error(fmt.Sprintf("update_by_id: %d not found in table %s", id, r.name), "table", r.name, "id", id)
		return nil, nil
	}
	return r.UpdateFields(ctx, obj, p)
}

func (r *Repository[T, C, U]) Remove(ctx context.Context, id int64) (*T, error) {
	obj, err := r.Get(ctx, id)
	if err != nil || obj == nil {
		return nil, err
	}
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*T)(nil)).
			ModelTableExpr(r.tableExpr()).
			Where("? = ?", pk(), id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// refresh re-reads obj after a write; nil when the row is gone.
func (r *Repository[T, C, U]) refresh(ctx context.Context, obj *T) (*T, error) {
	return r.Get(ctx, (*obj).GetID())
}

// merge copies e through its JSON form, overwriting every field whose key is
// also in p. A null aimed at a field that cannot hold one is skipped. It
// returns the merged copy and the sorted touched keys.
func (r *Repository[T, C, U]) merge(e *T, p Patch) (*T, []string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, nil, err
	}
	current := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &current); err != nil {
		return nil, nil, err
	}
	touched := make([]string, 0, len(p))
	for key := range current {
		value, ok := p[key]
		if !ok {
			continue
		}
		if _, guarded := r.guarded[key]; guarded {
			continue
		}
		if value == nil && !r.nullable[key] {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: field %s: %v", ErrInvalidPatch, key, err)
		}
		current[key] = encoded
		touched = append(touched, key)
	}
	sort.Strings(touched)

	raw, err = json.Marshal(current)
	if err != nil {
		return nil, nil, err
	}
	merged := new(T)
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(merged); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	r.keepHidden(e, merged)
	return merged, touched, nil
}

// keepHidden carries over columns that do not appear in the JSON form.
func (r *Repository[T, C, U]) keepHidden(from, to *T) {
	src, dst := reflect.ValueOf(from).Elem(), reflect.ValueOf(to).Elem()
	for _, f := range r.table.Fields {
		if name := jsonName(f.StructField); name == "" {
			f.Value(dst).Set(f.Value(src))
		}
	}
}

// columns keeps the touched keys that are columns of T.
func (r *Repository[T, C, U]) columns(touched []string) []string {
	return lo.Filter(touched, func(key string, _ int) bool {
		_, ok := r.table.FieldMap[key]
		return ok
	})
}
