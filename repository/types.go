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
	"context"

	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/types"
)

// CrudRepository is the fixed operation set behind a resource router. T is
// the entity, C its create schema and U its update schema. A missing row is
// reported as a nil entity with a nil error.
type CrudRepository[T entity.Model, C any, U any] interface {
	// Get returns the entity with id, or nil.
	Get(ctx context.Context, id int64) (*T, error)

	// BatchGet returns the entities whose ids are listed, ordered by id.
	// Unknown ids are omitted.
	BatchGet(ctx context.Context, ids []int64) ([]*T, error)

	// List returns an id-ordered window of entities.
	List(ctx context.Context, req *types.ListRequest) ([]*T, error)

	// Create inserts one entity and returns it as stored.
	Create(ctx context.Context, in *C) (*T, error)

	// BatchCreate inserts all entities in one transaction, preserving order.
	// The results carry their ids but are not re-read from the store.
	BatchCreate(ctx context.Context, in []C) ([]*T, error)

	// BatchCreateSilently bulk inserts without reading anything back.
	BatchCreateSilently(ctx context.Context, in []C) error

	// Update applies the set fields of in to e.
	Update(ctx context.Context, e *T, in *U) (*T, error)

	// UpdateFields applies the keys of p that name fields of e.
	UpdateFields(ctx context.Context, e *T, p Patch) (*T, error)

	// UpdateByID looks the entity up first; nil when it does not exist.
	UpdateByID(ctx context.Context, id int64, in *U) (*T, error)

	UpdateFieldsByID(ctx context.Context, id int64, p Patch) (*T, error)

	// Remove deletes the entity and returns its last state, or nil.
	Remove(ctx context.Context, id int64) (*T, error)
}

// PageQueryRepository adds counted, filtered pages.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// FilterRepository adds free-form WHERE lookups.
type FilterRepository[T any] interface {
	Find(ctx context.Context, filter *types.QueryFilter) ([]*T, error)
}
