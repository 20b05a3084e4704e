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

package bookstore

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/repository"
	"github.com/tomoncle/easycrud/router"
	"github.com/tomoncle/easycrud/types"
)

// Store is what the book resource needs from its backend.
type Store interface {
	repository.CrudRepository[Book, BookCreate, BookUpdate]
	repository.PageQueryRepository[Book]
}

type Resource = router.Resource[Book, BookRead, BookCreate, BookUpdate]

type pageQuery struct {
	types.PageRequest
	Query string `form:"q"`
}

// NewResource exposes store under /books, with a /books/page search added to
// the fixed endpoint set.
func NewResource(store Store, doc *openapi.Document) *Resource {
	opts := []router.Option{router.WithPrefix("/books"), router.WithTags("book")}
	if doc != nil {
		opts = append(opts, router.WithDocument(doc))
	}
	res := router.New[Book, BookRead, BookCreate, BookUpdate](store, ToRead, opts...)
	res.Extend(func(g *gin.RouterGroup, r *Resource) {
		r.Handle(g, http.MethodGet, "/page", "page", pageOperation(doc), func(c *gin.Context) {
			var q pageQuery
			if err := c.ShouldBindQuery(&q); err != nil {
				r.Fail(c, err)
				return
			}
			q.Orders = sortable(q.Orders)
			if q.Query != "" {
				like := "%" + strings.ToLower(q.Query) + "%"
				q.SetFilter(types.NewQueryFilter("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like))
			}
			page, err := store.Page(c.Request.Context(), &q.PageRequest)
			if err != nil {
				r.Fail(c, err)
				return
			}
			c.JSON(http.StatusOK, types.MapPagination(page, ToRead))
		})
	})
	return res
}

var sortColumns = []string{"id", "title", "author", "price", "create_time", "last_modified_time"}

// sortable keeps the "column [ASC|DESC]" terms that name a sortable column.
func sortable(orders []string) []string {
	return lo.FilterMap(orders, func(o string, _ int) (string, bool) {
		fields := strings.Fields(o)
		if len(fields) == 0 || len(fields) > 2 || !lo.Contains(sortColumns, fields[0]) {
			return "", false
		}
		if len(fields) == 1 {
			return fields[0], true
		}
		dir := strings.ToUpper(fields[1])
		if dir != "ASC" && dir != "DESC" {
			return "", false
		}
		return fields[0] + " " + dir, true
	})
}

func pageOperation(doc *openapi.Document) *openapi.Operation {
	if doc == nil {
		return nil
	}
	integer := &openapi.Schema{Type: "integer"}
	return &openapi.Operation{
		Summary: "Search books page by page",
		Parameters: []openapi.Parameter{
			{Name: "page", In: "query", Schema: integer},
			{Name: "page_size", In: "query", Schema: integer},
			{Name: "q", In: "query", Schema: openapi.String()},
			{Name: "order", In: "query", Schema: openapi.ArrayOf(openapi.String())},
		},
		Responses: map[string]openapi.Response{
			"200": {Description: "Successful Response", Content: map[string]openapi.MediaType{
				"application/json": {Schema: openapi.SchemaFor[types.Pagination[BookRead]](doc)},
			}},
		},
	}
}
