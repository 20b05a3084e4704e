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
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Schema is the subset of the OpenAPI schema object the router emits.
type Schema struct {
	Ref                  string             `json:"$ref,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Nullable             bool               `json:"nullable,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Default              any                `json:"default,omitempty"`
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage{})
	unsafeName     = regexp.MustCompile(`[^A-Za-z0-9_.]+`)
)

func Ref(name string) *Schema { return &Schema{Ref: "#/components/schemas/" + name} }

func Integer() *Schema { return &Schema{Type: "integer", Format: "int64"} }

func String() *Schema { return &Schema{Type: "string"} }

func ArrayOf(items *Schema) *Schema { return &Schema{Type: "array", Items: items} }

// Nullable returns a copy of s that admits null. A reference is wrapped in
// allOf since siblings of $ref are ignored.
func Nullable(s *Schema) *Schema {
	if s.Ref != "" {
		return &Schema{Nullable: true, AllOf: []*Schema{s}}
	}
	cp := *s
	cp.Nullable = true
	return &cp
}

// SchemaOf describes typ, registering named struct types as components.
func (d *Document) SchemaOf(typ reflect.Type) *Schema {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schemaOf(typ)
}

// SchemaFor is SchemaOf for a type parameter.
func SchemaFor[V any](d *Document) *Schema {
	return d.SchemaOf(reflect.TypeOf((*V)(nil)).Elem())
}

func (d *Document) schemaOf(typ reflect.Type) *Schema {
	if typ.Kind() == reflect.Ptr {
		return d.schemaOf(typ.Elem())
	}
	switch {
	case typ == timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case typ == rawMessageType:
		return &Schema{}
	}
	switch typ.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return &Schema{Type: "integer", Format: "int32"}
	case reflect.Int64, reflect.Uint64:
		return Integer()
	case reflect.Float32:
		return &Schema{Type: "number", Format: "float"}
	case reflect.Float64:
		return &Schema{Type: "number", Format: "double"}
	case reflect.String:
		return String()
	case reflect.Slice, reflect.Array:
		if typ.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}
		}
		return ArrayOf(d.schemaOf(typ.Elem()))
	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: d.schemaOf(typ.Elem())}
	case reflect.Struct:
		if typ.Name() == "" {
			return d.structSchema(typ)
		}
		name := componentName(typ)
		if _, ok := d.components.Schemas[name]; !ok {
			// placeholder first so self-referencing types terminate
			d.components.Schemas[name] = &Schema{Type: "object"}
			d.components.Schemas[name] = d.structSchema(typ)
		}
		return Ref(name)
	}
	return &Schema{}
}

func (d *Document) structSchema(typ reflect.Type) *Schema {
	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	d.collectFields(typ, s)
	return s
}

func (d *Document) collectFields(typ reflect.Type, s *Schema) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		tag := sf.Tag.Get("json")
		if sf.Anonymous && tag == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != timeType {
				d.collectFields(ft, s)
				continue
			}
		}
		if !sf.IsExported() || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}
		prop := d.schemaOf(sf.Type)
		if sf.Type.Kind() == reflect.Ptr {
			prop = Nullable(prop)
		}
		s.Properties[name] = prop
		if isRequired(sf) {
			s.Required = append(s.Required, name)
		}
	}
}

func isRequired(sf reflect.StructField) bool {
	for _, rule := range strings.Split(sf.Tag.Get("binding"), ",") {
		if rule == "required" {
			return true
		}
	}
	return false
}

// componentName turns a (possibly generic) Go type name into a component key.
func componentName(typ reflect.Type) string {
	name := typ.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		args := name[i+1 : len(name)-1]
		parts := strings.Split(args, ",")
		for j, p := range parts {
			if k := strings.LastIndexByte(p, '.'); k >= 0 {
				p = p[k+1:]
			}
			parts[j] = p
		}
		name = name[:i] + "_" + strings.Join(parts, "_")
	}
	return unsafeName.ReplaceAllString(name, "_")
}
