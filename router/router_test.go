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

package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/problem"
	"github.com/tomoncle/easycrud/repository"
	"github.com/tomoncle/easycrud/router"
	"github.com/tomoncle/easycrud/testutil"
	"github.com/uptrace/bun"
)

type Book struct {
	entity.Base
	Title  string  `bun:"title,notnull" json:"title"`
	Price  float64 `bun:"price" json:"price"`
	Secret string  `bun:"secret" json:"secret"`
}

type BookRead struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title" binding:"required"`
	Price            float64   `json:"price"`
	CreateTime       time.Time `json:"create_time"`
	LastModifiedTime time.Time `json:"last_modified_time"`
}

type BookCreate struct {
	Title  string  `json:"title" binding:"required"`
	Price  float64 `json:"price" binding:"min=0"`
	Secret string  `json:"secret"`
}

type BookUpdate struct {
	Title *string  `json:"title,omitempty" binding:"omitempty,min=1"`
	Price *float64 `json:"price,omitempty" binding:"omitempty,min=0"`
}

func toRead(b *Book) *BookRead {
	return &BookRead{ID: b.ID, Title: b.Title, Price: b.Price, CreateTime: b.CreateTime, LastModifiedTime: b.LastModifiedTime}
}

func fromCreate(c *BookCreate) *Book {
	return &Book{Title: c.Title, Price: c.Price, Secret: c.Secret}
}

type fixture struct {
	engine *gin.Engine
	db     *bun.DB
	repo   *repository.Repository[Book, BookCreate, BookUpdate]
	doc    *openapi.Document
}

func newFixture(t *testing.T, opts ...router.Option) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, database.CreateTable(context.Background(), db, database.NewModelAdapter((*Book)(nil), 0)))
	repo := repository.New[Book, BookCreate, BookUpdate](db, fromCreate)
	doc := openapi.New("test", "0.0.1")

	engine := gin.New()
	opts = append([]router.Option{router.WithPrefix("/books"), router.WithTags("book"), router.WithDocument(doc)}, opts...)
	router.New[Book, BookRead, BookCreate, BookUpdate](repo, toRead, opts...).Register(engine)
	return &fixture{engine: engine, db: db, repo: repo, doc: doc}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) seed(t *testing.T, titles ...string) []*Book {
	t.Helper()
	in := make([]BookCreate, 0, len(titles))
	for i, title := range titles {
		in = append(in, BookCreate{Title: title, Price: float64(i + 1), Secret: "s-" + title})
	}
	out, err := f.repo.BatchCreate(context.Background(), in)
	require.NoError(t, err)
	return out
}

func decode[V any](t *testing.T, w *httptest.ResponseRecorder) V {
	t.Helper()
	var v V
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetAll(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "b", "c", "d")

	w := f.do(t, http.MethodGet, "/books/all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]BookRead](t, w), 4)

	w = f.do(t, http.MethodGet, "/books/all?skip=1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]BookRead](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "c", got[1].Title)

	w = f.do(t, http.MethodGet, "/books/all?limit=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetAllRejectsBadWindow(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"limit=-1", "skip=-5", "skip=abc"} {
		w := f.do(t, http.MethodGet, "/books/all?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, problem.ContentType, w.Header().Get("Content-Type"))
	}
}

func TestBatchGet(t *testing.T) {
	f := newFixture(t)
	books := f.seed(t, "a", "b", "c")

	w := f.do(t, http.MethodGet, "/books/batch_get?ids=3&ids=1&ids=99", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]BookRead](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, books[0].ID, got[0].ID)
	assert.Equal(t, books[2].ID, got[1].ID)

	w = f.do(t, http.MethodGet, "/books/batch_get", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = f.do(t, http.MethodGet, "/books/batch_get?ids=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	books := f.seed(t, "a")

	w := f.do(t, http.MethodGet, "/books/get?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[BookRead](t, w)
	assert.Equal(t, books[0].ID, got.ID)
	assert.NotContains(t, w.Body.String(), "secret")

	w = f.do(t, http.MethodGet, "/books/get?id=404", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/books/get", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/books/get?id=one", nil).Code)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/books/create", BookCreate{Title: "Dune", Price: 9.5})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[BookRead](t, w)
	assert.Positive(t, got.ID)
	assert.Equal(t, "Dune", got.Title)
	assert.False(t, got.CreateTime.IsZero())

	w = f.do(t, http.MethodPost, "/books/create", map[string]any{"price": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	p := decode[problem.Detail](t, w)
	assert.Equal(t, problem.TypeValidation, p.Type)
	assert.Contains(t, p.Extensions["fields"], "Title")

	w = f.do(t, http.MethodPost, "/books/create", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	all, err := f.repo.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBatchCreate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/books/batch_create", []BookCreate{{Title: "z"}, {Title: "y"}})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]BookRead](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, "z", got[0].Title)
	assert.Equal(t, "y", got[1].Title)
	assert.Less(t, got[0].ID, got[1].ID)

	w = f.do(t, http.MethodPost, "/books/batch_create", []map[string]any{{"title": "ok"}, {"price": 2}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchCreateSilently(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/books/batch_create_silently", []BookCreate{{Title: "a"}, {Title: "b"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"success"`, w.Body.String())

	all, err := f.repo.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	book := f.seed(t, "old")[0]
	origin := toRead(book)

	w := f.do(t, http.MethodPut, "/books/update", map[string]any{
		"origin": origin,
		"update": map[string]any{"title": "new", "secret": "leak"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[BookRead](t, w)
	assert.Equal(t, book.ID, got.ID)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, book.Price, got.Price)

	stored, err := f.repo.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "s-old", stored.Secret)
}

func TestUpdateWithMissingOriginIsNull(t *testing.T) {
	f := newFixture(t)
	book := f.seed(t, "old")[0]
	_, err := f.repo.Remove(context.Background(), book.ID)
	require.NoError(t, err)

	w := f.do(t, http.MethodPut, "/books/update", map[string]any{
		"origin": toRead(book),
		"update": map[string]any{"title": "new"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "null", w.Body.String())

	w = f.do(t, http.MethodPut, "/books/update", map[string]any{
		"origin": &BookRead{ID: 404, Title: "ghost"},
		"update": map[string]any{"price": 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "null", w.Body.String())

	stored, err := f.repo.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUpdateRejectsBadPayload(t *testing.T) {
	f := newFixture(t)
	book := f.seed(t, "old")[0]

	w := f.do(t, http.MethodPut, "/books/update", map[string]any{"update": map[string]any{"title": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/books/update", map[string]any{
		"origin": toRead(book),
		"update": map[string]any{"price": -1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/books/update", map[string]any{
		"origin": map[string]any{"id": book.ID},
		"update": map[string]any{"price": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "origin must satisfy the read schema")
}

func TestUpdateByID(t *testing.T) {
	f := newFixture(t)
	book := f.seed(t, "old")[0]

	w := f.do(t, http.MethodPut, "/books/update_by_id?id=1", map[string]any{"price": 42})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[BookRead](t, w)
	assert.Equal(t, 42.0, got.Price)
	assert.Equal(t, book.Title, got.Title)

	w = f.do(t, http.MethodPut, "/books/update_by_id?id=77", map[string]any{"price": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	w = f.do(t, http.MethodPut, "/books/update_by_id?id=1", map[string]any{"price": "free"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateByIDWithMapSchema(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	require.NoError(t, database.CreateTable(ctx, db, database.NewModelAdapter((*Book)(nil), 0)))
	repo := repository.New[Book, BookCreate, map[string]any](db, fromCreate)
	book, err := repo.Create(ctx, &BookCreate{Title: "t", Secret: "a"})
	require.NoError(t, err)

	engine := gin.New()
	router.New[Book, BookRead, BookCreate, map[string]any](repo, toRead).Register(engine)

	req := httptest.NewRequest(http.MethodPut, "/update_by_id?id=1", bytes.NewReader([]byte(`{"secret":"b"}`)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", stored.Secret)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "b")

	w := f.do(t, http.MethodDelete, "/books/delete?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a", decode[BookRead](t, w).Title)

	w = f.do(t, http.MethodGet, "/books/get?id=1", nil)
	assert.Equal(t, "null", w.Body.String())

	w = f.do(t, http.MethodDelete, "/books/delete?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}

func TestStoreFailureIsInternalError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, database.DropTable(context.Background(), f.db, database.NewModelAdapter((*Book)(nil), 0)))

	w := f.do(t, http.MethodGet, "/books/get?id=1", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	p := decode[problem.Detail](t, w)
	assert.Equal(t, "no_table", p.Extensions["sql_error"])
}

func TestExtensions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, database.CreateTable(context.Background(), db, database.NewModelAdapter((*Book)(nil), 0)))
	repo := repository.New[Book, BookCreate, BookUpdate](db, fromCreate)
	doc := openapi.New("test", "0.0.1")

	res := router.New[Book, BookRead, BookCreate, BookUpdate](repo, toRead,
		router.WithPrefix("books"),
		router.WithDocument(doc),
		router.WithTags("book"),
		router.WithExtension(func(g *gin.RouterGroup) {
			g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		}),
	)
	res.Extend(func(g *gin.RouterGroup, r *router.Resource[Book, BookRead, BookCreate, BookUpdate]) {
		r.Handle(g, http.MethodGet, "/count", "count", nil, func(c *gin.Context) {
			all, err := r.Repository().List(c.Request.Context(), nil)
			if err != nil {
				r.Fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": len(all)})
		})
	})

	engine := gin.New()
	g := res.Register(engine)
	assert.Equal(t, "/books", g.BasePath())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/ping", nil))
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/count", nil))
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	assert.Contains(t, doc.OperationIDs(), "book-count")
}

func TestDocumentedOperations(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{
		"book-batch_create",
		"book-batch_create_silently",
		"book-create",
		"book-delete",
		"book-get_all",
		"book-get_by_id",
		"book-get_by_ids",
		"book-update",
		"book-update_by_id",
	}, f.doc.OperationIDs())

	op := f.doc.Operation(http.MethodPut, "/books/update")
	require.NotNil(t, op)
	assert.Equal(t, []string{"book"}, op.Tags)
	require.NotNil(t, op.RequestBody)
}
