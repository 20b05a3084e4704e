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

package problem_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/easycrud/problem"
)

func init() { gin.SetMode(gin.TestMode) }

func respond(t *testing.T, r *problem.Responder, err error) (*httptest.ResponseRecorder, problem.Detail) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/books/get", nil)
	r.RespondError(c, err)

	var body problem.Detail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestWithExtensionDoesNotShareMap(t *testing.T) {
	a := problem.ErrBadRequest.WithExtension("a", 1)
	b := a.WithExtension("b", 2)
	assert.Len(t, a.Extensions, 1)
	assert.Len(t, b.Extensions, 2)
	assert.Nil(t, problem.ErrBadRequest.Extensions)
}

func TestRespondSetsContentTypeAndInstance(t *testing.T) {
	w, body := respond(t, problem.NewResponder("https://errors.example.com"), problem.ErrBadRequest.WithDetail("bad id"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, problem.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "https://errors.example.com/problems/bad-request", body.Type)
	assert.Equal(t, "/books/get", body.Instance)
	assert.Equal(t, "bad id", body.Detail)
}

func TestValidationFields(t *testing.T) {
	type input struct {
		Title string `validate:"required"`
		Price int    `validate:"min=1"`
	}
	err := validator.New().Struct(input{})
	require.Error(t, err)

	w, body := respond(t, problem.Default, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, problem.TypeValidation, body.Type)
	fields, ok := body.Extensions["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "failed on the 'required' rule", fields["Title"])
	assert.Equal(t, "failed on the 'min=1' rule", fields["Price"])
}

func TestDecodingErrors(t *testing.T) {
	var v struct{ N int }
	syntaxErr := json.Unmarshal([]byte("{"), &v)
	typeErr := json.Unmarshal([]byte(`{"N":"x"}`), &v)

	for _, err := range []error{syntaxErr, typeErr, fmt.Errorf("wrapped: %w", syntaxErr)} {
		w, body := respond(t, problem.Default, err)
		assert.Equal(t, http.StatusBadRequest, w.Code, err.Error())
		assert.Equal(t, problem.TypeBadRequest, body.Type)
	}
}

func TestStoreErrorsCarryKind(t *testing.T) {
	cases := map[string]error{
		"duplicate_key": &pq.Error{Code: "23505", Message: "duplicate key value"},
		"no_table":      &mysql.MySQLError{Number: 1146, Message: "Table 'app.book' doesn't exist"},
		"no_column":     errors.New("SQL logic error: no such column: nope (1)"),
	}
	for kind, err := range cases {
		w, body := respond(t, problem.Default, err)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, kind, body.Extensions["sql_error"])
	}
}

func TestUnknownErrorIsInternal(t *testing.T) {
	w, body := respond(t, problem.Default, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "boom", body.Detail)
	assert.Empty(t, body.Extensions)
}

func TestWithPrependsMappers(t *testing.T) {
	sentinel := errors.New("sentinel")
	r := problem.Default.With(func(err error) (problem.Detail, bool) {
		if errors.Is(err, sentinel) {
			return problem.ErrNotFound, true
		}
		return problem.Detail{}, false
	})
	assert.Equal(t, http.StatusNotFound, r.Resolve(fmt.Errorf("x: %w", sentinel)).Status)
	assert.Equal(t, http.StatusInternalServerError, problem.Default.Resolve(sentinel).Status)
	assert.Equal(t, http.StatusOK, problem.Status(nil))
}
