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
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

type UserProfile struct {
	Base
	Nickname string `bun:"nickname" json:"nickname"`
}

type legacyOrder struct {
	Base
}

func (legacyOrder) TableName() string { return "orders_v1" }

func TestTableName(t *testing.T) {
	cases := map[string]string{
		"UserProfile": "user_profile",
		"HTTPLog":     "h_t_t_p_log",
		"Book":        "book",
		"book":        "book",
		"A":           "a",
		"":            "",
		"OrderItemV2": "order_item_v2",
	}
	for in, want := range cases {
		assert.Equal(t, want, TableName(in), in)
	}
}

func TestTableNameFor(t *testing.T) {
	assert.Equal(t, "user_profile", TableNameOf[UserProfile]())
	assert.Equal(t, "user_profile", TableNameFor(reflect.TypeOf(&UserProfile{})))
	assert.Equal(t, "orders_v1", TableNameOf[legacyOrder]())
}

func TestBaseSatisfiesModel(t *testing.T) {
	var m Model = UserProfile{Base: Base{ID: 7}}
	assert.Equal(t, int64(7), m.GetID())
}

func TestBeforeAppendModelStampsOnUpdateOnly(t *testing.T) {
	p := &UserProfile{}
	assert.NoError(t, p.BeforeAppendModel(context.Background(), &bun.InsertQuery{}))
	assert.True(t, p.LastModifiedTime.IsZero())

	before := time.Now()
	assert.NoError(t, p.BeforeAppendModel(context.Background(), &bun.UpdateQuery{}))
	assert.False(t, p.LastModifiedTime.Before(before))
}

func TestBeforeAppendModelKeepsExplicitValue(t *testing.T) {
	explicit := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &UserProfile{Base: Base{LastModifiedTime: explicit}}
	ctx := KeepLastModified(context.Background())
	assert.NoError(t, p.BeforeAppendModel(ctx, &bun.UpdateQuery{}))
	assert.Equal(t, explicit, p.LastModifiedTime)
}
