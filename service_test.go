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

package easycrud_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/easycrud"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/router"
	"github.com/tomoncle/easycrud/testutil"
)

type Note struct {
	entity.Base
	Body string `bun:"body" json:"body"`
}

type NoteIn struct {
	Body string `json:"body" binding:"required"`
}

func noteFromIn(in *NoteIn) *Note { return &Note{Body: in.Body} }

func TestServiceBindsLazily(t *testing.T) {
	database.SetDB(nil)
	t.Cleanup(func() { database.SetDB(nil) })
	ctx := context.Background()

	svc := easycrud.NewService[Note, NoteIn, NoteIn](noteFromIn)
	_, err := svc.Get(ctx, 1)
	require.ErrorIs(t, err, database.ErrNotConnected)

	db := testutil.NewSQLiteDB(t)
	require.NoError(t, database.CreateTable(ctx, db, database.NewModelAdapter((*Note)(nil), 0)))
	database.SetDB(db)

	n, err := svc.Create(ctx, &NoteIn{Body: "hi"})
	require.NoError(t, err)
	got, err := svc.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Body)

	repo, err := svc.Repository()
	require.NoError(t, err)
	assert.Equal(t, "note", repo.Table())
}

func TestNewAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, database.CreateTable(ctx, db, database.NewModelAdapter((*Note)(nil), 0)))
	database.SetDB(db)
	t.Cleanup(func() { database.SetDB(nil) })

	engine := gin.New()
	easycrud.NewAPI[Note, Note, NoteIn, NoteIn](noteFromIn, func(n *Note) *Note { return n }, router.WithPrefix("/notes")).Register(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/notes/create", strings.NewReader(`{"body":"x"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes/all", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"body":"x"`)
}
