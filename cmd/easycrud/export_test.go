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

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestExportDocumentJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "openapi.json")
	require.NoError(t, exportDocument(&exportOptions{Output: out, RootPath: "/api", Bearer: true}))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc struct {
		OpenAPI string `json:"openapi"`
		Servers []struct {
			URL string `json:"url"`
		} `json:"servers"`
		Paths    map[string]map[string]struct{ OperationID string `json:"operationId"` } `json:"paths"`
		Security []map[string][]string `json:"security"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	require.NotEmpty(t, doc.Servers)
	assert.Equal(t, "/api", doc.Servers[0].URL)
	assert.Equal(t, []map[string][]string{{"HTTPBearer": {}}}, doc.Security)

	got := map[string]string{}
	for path, ops := range doc.Paths {
		for method, op := range ops {
			got[method+" "+path] = op.OperationID
		}
	}
	want := map[string]string{
		"get /books/all":                    "book-get_all",
		"get /books/batch_get":              "book-get_by_ids",
		"get /books/get":                    "book-get_by_id",
		"post /books/create":                "book-create",
		"post /books/batch_create":          "book-batch_create",
		"post /books/batch_create_silently": "book-batch_create_silently",
		"put /books/update":                 "book-update",
		"put /books/update_by_id":           "book-update_by_id",
		"delete /books/delete":              "book-delete",
		"get /books/page":                   "book-page",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestExportDocumentYAMLReplacesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o600))
	require.NoError(t, exportDocument(&exportOptions{Output: out}))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.NotContains(t, doc, "security")
}

func TestExportDocumentRejectsUnknownExtension(t *testing.T) {
	err := exportDocument(&exportOptions{Output: filepath.Join(t.TempDir(), "openapi.txt")})
	assert.ErrorContains(t, err, "unsupported output")
}
