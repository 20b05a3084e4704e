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

package entity

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

const (
	ColumnID               = "id"
	ColumnCreateTime       = "create_time"
	ColumnLastModifiedTime = "last_modified_time"
)

// Model is satisfied by every struct embedding Base.
type Model interface {
	GetID() int64
}

// Base carries the identity and audit columns shared by all entities.
// JSON names equal column names; partial updates rely on that.
type Base struct {
	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	CreateTime       time.Time `bun:"create_time,nullzero,notnull,default:current_timestamp" json:"create_time"`
	LastModifiedTime time.Time `bun:"last_modified_time,nullzero,notnull,default:current_timestamp" json:"last_modified_time"`
}

func (b Base) GetID() int64 { return b.ID }

type keepModifiedKey struct{}

// KeepLastModified marks ctx so that an UPDATE keeps the LastModifiedTime
// already set on the model instead of stamping the current time.
func KeepLastModified(ctx context.Context) context.Context {
	return context.WithValue(ctx, keepModifiedKey{}, true)
}

var _ bun.BeforeAppendModelHook = (*Base)(nil)

// BeforeAppendModel stamps LastModifiedTime on every UPDATE unless the
// context says otherwise.
func (b *Base) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); !ok {
		return nil
	}
	if keep, _ := ctx.Value(keepModifiedKey{}).(bool); keep {
		return nil
	}
	b.LastModifiedTime = time.Now()
	return nil
}
