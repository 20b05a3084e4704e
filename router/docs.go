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

package router

import (
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/problem"
)

const jsonMedia = "application/json"

func queryParam(name string, required bool, schema *openapi.Schema) openapi.Parameter {
	return openapi.Parameter{Name: name, In: "query", Required: required, Schema: schema}
}

func jsonContent(s *openapi.Schema) map[string]openapi.MediaType {
	return map[string]openapi.MediaType{jsonMedia: {Schema: s}}
}

func (r *Resource[T, R, C, U]) operation(name string) *openapi.Operation {
	doc := r.settings.doc
	read := openapi.SchemaFor[R](doc)
	create := openapi.SchemaFor[C](doc)
	update := openapi.SchemaFor[U](doc)
	failure := openapi.SchemaFor[problem.Detail](doc)
	id := queryParam("id", true, openapi.Integer())

	ok := func(s *openapi.Schema) map[string]openapi.Response {
		return map[string]openapi.Response{
			"200": {Description: "Successful Response", Content: jsonContent(s)},
			"400": {Description: "Bad Request", Content: map[string]openapi.MediaType{problem.ContentType: {Schema: failure}}},
			"500": {Description: "Internal Server Error", Content: map[string]openapi.MediaType{problem.ContentType: {Schema: failure}}},
		}
	}
	body := func(s *openapi.Schema) *openapi.RequestBody {
		return &openapi.RequestBody{Required: true, Content: jsonContent(s)}
	}

	op := &openapi.Operation{Tags: r.settings.tags}
	switch name {
	case "get_all":
		zero := 0.0
		op.Summary = "List entities by offset"
		op.Parameters = []openapi.Parameter{
			queryParam("skip", false, &openapi.Schema{Type: "integer", Minimum: &zero, Default: 0}),
			queryParam("limit", false, &openapi.Schema{Type: "integer", Minimum: &zero, Default: 100}),
		}
		op.Responses = ok(openapi.ArrayOf(read))
	case "get_by_ids":
		explode := true
		op.Summary = "Get entities by ids"
		op.Parameters = []openapi.Parameter{{Name: "ids", In: "query", Explode: &explode, Schema: openapi.ArrayOf(openapi.Integer())}}
		op.Responses = ok(openapi.ArrayOf(read))
	case "get_by_id":
		op.Summary = "Get an entity"
		op.Parameters = []openapi.Parameter{id}
		op.Responses = ok(openapi.Nullable(read))
	case "create":
		op.Summary = "Create an entity"
		op.RequestBody = body(create)
		op.Responses = ok(read)
	case "batch_create":
		op.Summary = "Create entities in one transaction"
		op.RequestBody = body(openapi.ArrayOf(create))
		op.Responses = ok(openapi.ArrayOf(read))
	case "batch_create_silently":
		op.Summary = "Bulk insert entities"
		op.RequestBody = body(openapi.ArrayOf(create))
		op.Responses = ok(openapi.String())
	case "update":
		op.Summary = "Update an entity"
		op.RequestBody = body(&openapi.Schema{
			Type:       "object",
			Properties: map[string]*openapi.Schema{"origin": read, "update": update},
			Required:   []string{"origin", "update"},
		})
		op.Responses = ok(openapi.Nullable(read))
	case "update_by_id":
		op.Summary = "Update an entity by id"
		op.Parameters = []openapi.Parameter{id}
		op.RequestBody = body(update)
		op.Responses = ok(openapi.Nullable(read))
	case "delete":
		op.Summary = "Delete an entity"
		op.Parameters = []openapi.Parameter{id}
		op.Responses = ok(openapi.Nullable(read))
	}
	return op
}
