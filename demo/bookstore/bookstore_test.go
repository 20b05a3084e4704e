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

package bookstore_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/easycrud/config"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/demo/bookstore"
	"github.com/tomoncle/easycrud/problem"
	"github.com/tomoncle/easycrud/repository"
	"github.com/tomoncle/easycrud/server"
	"github.com/tomoncle/easycrud/testutil"
	"github.com/tomoncle/easycrud/types"
)

type app struct {
	srv *server.Server
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, database.NewMigrationManager(db, database.GetLogger()).RunMigrations(ctx))

	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	srv, err := server.New(ctx, cfg, server.WithName("bookstore"), server.WithHealth(func(context.Context) *database.HealthStatus {
		return &database.HealthStatus{Healthy: true}
	}))
	require.NoError(t, err)

	repo := repository.New[bookstore.Book, bookstore.BookCreate, bookstore.BookUpdate](db, bookstore.FromCreate)
	bookstore.NewResource(repo, srv.Document()).Register(srv.Engine())
	return &app{srv: srv}
}

func (a *app) call(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.srv.Engine().ServeHTTP(w, req)
	return w
}

func decode[V any](t *testing.T, w *httptest.ResponseRecorder) V {
	t.Helper()
	var v V
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRegisteredForMigration(t *testing.T) {
	tables := make([]string, 0)
	for _, m := range database.GetRegisteredModels() {
		tables = append(tables, m.Table())
	}
	assert.Contains(t, tables, "book")
}

func TestBookLifecycle(t *testing.T) {
	a := newApp(t)

	w := a.call(t, http.MethodPost, "/books/create", bookstore.BookCreate{
		Title:    "Dune",
		Author:   "Frank Herbert",
		ISBN:     "9780441013593",
		Price:    9.99,
		Metadata: types.JsonObject{"series": "Dune", "volume": 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dune := decode[bookstore.BookRead](t, w)
	assert.Equal(t, "Dune", dune.Metadata["series"])
	assert.Equal(t, 1.0, dune.Metadata["volume"])

	w = a.call(t, http.MethodPost, "/books/batch_create", []bookstore.BookCreate{
		{Title: "Hyperion", Author: "Dan Simmons", Price: 8},
		{Title: "Foundation", Author: "Isaac Asimov", Price: 7},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.call(t, http.MethodPut, "/books/update", map[string]any{
		"origin": dune,
		"update": map[string]any{"price": 12.5},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[bookstore.BookRead](t, w)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.Equal(t, "9780441013593", updated.ISBN)

	w = a.call(t, http.MethodGet, "/books/all?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]bookstore.BookRead](t, w), 3)

	w = a.call(t, http.MethodDelete, "/books/delete?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dune", decode[bookstore.BookRead](t, w).Title)

	w = a.call(t, http.MethodGet, "/books/get?id=1", nil)
	assert.Equal(t, "null", w.Body.String())
}

func TestCreateValidation(t *testing.T) {
	a := newApp(t)

	w := a.call(t, http.MethodPost, "/books/create", map[string]any{"title": "x", "author": "y", "isbn": "123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	p := decode[problem.Detail](t, w)
	assert.Contains(t, p.Extensions["fields"], "ISBN")

	w = a.call(t, http.MethodPost, "/books/create", map[string]any{"title": "x", "author": "y", "price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateISBNIsReported(t *testing.T) {
	a := newApp(t)
	in := bookstore.BookCreate{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"}

	require.Equal(t, http.StatusOK, a.call(t, http.MethodPost, "/books/create", in).Code)
	w := a.call(t, http.MethodPost, "/books/create", in)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "duplicate_key", decode[problem.Detail](t, w).Extensions["sql_error"])

	w = a.call(t, http.MethodPost, "/books/create", bookstore.BookCreate{Title: "No ISBN", Author: "a"})
	require.Equal(t, http.StatusOK, w.Code)
	w = a.call(t, http.MethodPost, "/books/create", bookstore.BookCreate{Title: "No ISBN either", Author: "b"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPageExtension(t *testing.T) {
	a := newApp(t)
	w := a.call(t, http.MethodPost, "/books/batch_create_silently", []bookstore.BookCreate{
		{Title: "Dune", Author: "Frank Herbert", Price: 10},
		{Title: "Dune Messiah", Author: "Frank Herbert", Price: 11},
		{Title: "Children of Dune", Author: "Frank Herbert", Price: 12},
		{Title: "Hyperion", Author: "Dan Simmons", Price: 8},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	q := url.Values{"q": {"DUNE"}, "page": {"1"}, "page_size": {"2"}, "order": {"price DESC"}}
	w = a.call(t, http.MethodGet, "/books/page?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[types.Pagination[bookstore.BookRead]](t, w)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Children of Dune", page.Items[0].Title)

	q = url.Values{"order": {"price; DROP TABLE book"}, "page_size": {"10"}}
	w = a.call(t, http.MethodGet, "/books/page?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page = decode[types.Pagination[bookstore.BookRead]](t, w)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, "Dune", page.Items[0].Title)
}

func TestDocumentListsExtension(t *testing.T) {
	a := newApp(t)
	assert.Contains(t, a.srv.Document().OperationIDs(), "book-page")
	assert.Contains(t, a.srv.Document().OperationIDs(), "book-update_by_id")

	w := a.call(t, http.MethodGet, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/books/page"`)
	assert.Contains(t, w.Body.String(), `"Pagination_BookRead"`)
}
