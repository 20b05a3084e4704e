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

package openapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

const Version = "3.0.3"

type Info struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Explode     *bool   `json:"explode,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type Operation struct {
	OperationID string              `json:"operationId"`
	Summary     string              `json:"summary,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// PathItem maps a lower-case HTTP method to its operation.
type PathItem map[string]*Operation

type SecurityScheme struct {
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	Name         string `json:"name,omitempty"`
	In           string `json:"in,omitempty"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
}

type Components struct {
	Schemas         map[string]*Schema        `json:"schemas,omitempty"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityRequirement names a scheme and its required scopes.
type SecurityRequirement map[string][]string

// Document is an OpenAPI 3 document assembled at registration time. It is
// safe for concurrent use.
type Document struct {
	mu         sync.RWMutex
	info       Info
	servers    []Server
	paths      map[string]PathItem
	components Components
	security   []SecurityRequirement
}

func New(title, version string) *Document {
	return &Document{
		info:  Info{Title: title, Version: version},
		paths: map[string]PathItem{},
		components: Components{
			Schemas:         map[string]*Schema{},
			SecuritySchemes: map[string]SecurityScheme{},
		},
	}
}

func (d *Document) SetDescription(desc string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info.Description = desc
	return d
}

func (d *Document) SetServers(servers []Server) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.servers = append([]Server(nil), servers...)
	return d
}

// AddOperation registers op under method and path. Gin path parameters
// (":id") are rewritten to OpenAPI form ("{id}").
func (d *Document) AddOperation(method, path string, op *Operation) {
	path = openapiPath(path)
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.paths[path]
	if !ok {
		item = PathItem{}
		d.paths[path] = item
	}
	if op.Responses == nil {
		op.Responses = map[string]Response{}
	}
	item[strings.ToLower(method)] = op
}

// Operation looks up a registered operation.
func (d *Document) Operation(method, path string) *Operation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.paths[openapiPath(path)][strings.ToLower(method)]
}

// OperationIDs lists every registered operation id, sorted.
func (d *Document) OperationIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	for _, item := range d.paths {
		for _, op := range item {
			ids = append(ids, op.OperationID)
		}
	}
	sort.Strings(ids)
	return ids
}

type wireDocument struct {
	OpenAPI    string                `json:"openapi"`
	Info       Info                  `json:"info"`
	Servers    []Server              `json:"servers,omitempty"`
	Paths      map[string]PathItem   `json:"paths"`
	Components *Components           `json:"components,omitempty"`
	Security   []SecurityRequirement `json:"security,omitempty"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w := wireDocument{
		OpenAPI:  Version,
		Info:     d.info,
		Servers:  d.servers,
		Paths:    d.paths,
		Security: d.security,
	}
	if len(d.components.Schemas) > 0 || len(d.components.SecuritySchemes) > 0 {
		w.Components = &d.components
	}
	return json.Marshal(w)
}

// YAML renders the document through its JSON form.
func (d *Document) YAML() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

func (d *Document) JSONHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := json.Marshal(d)
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
	}
}

func (d *Document) YAMLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := d.YAML()
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", raw)
	}
}

// Mount serves the document at /openapi.json and /openapi.yaml.
func (d *Document) Mount(r gin.IRoutes) {
	r.GET("/openapi.json", d.JSONHandler())
	r.GET("/openapi.yaml", d.YAMLHandler())
}

func openapiPath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if strings.HasPrefix(s, ":") || strings.HasPrefix(s, "*") {
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}
