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

package repository

import (
	"reflect"
	"strings"
)

// jsonName is the key encoding/json uses for sf, or "" when it is skipped.
func jsonName(sf reflect.StructField) string {
	if !sf.IsExported() {
		return ""
	}
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}

// walkFields calls fn for every JSON-visible field of typ, following
// embedded structs. It reports false when typ is not a struct.
func walkFields(typ reflect.Type, fn func(name string, sf reflect.StructField)) bool {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if sf.Anonymous && sf.Tag.Get("json") == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				walkFields(ft, fn)
				continue
			}
		}
		if name := jsonName(sf); name != "" {
			fn(name, sf)
		}
	}
	return true
}

// FieldNames lists the JSON keys a struct type declares, following embedded
// structs. It returns nil for anything but a struct, meaning "no schema".
func FieldNames(typ reflect.Type) []string {
	var names []string
	if !walkFields(typ, func(name string, _ reflect.StructField) { names = append(names, name) }) {
		return nil
	}
	if names == nil {
		names = []string{}
	}
	return names
}

// FieldNamesOf is FieldNames for a type parameter.
func FieldNamesOf[S any]() []string {
	return FieldNames(reflect.TypeOf((*S)(nil)).Elem())
}

// nullableFields maps each JSON key of typ to whether encoding/json can
// store a null in it.
func nullableFields(typ reflect.Type) map[string]bool {
	out := map[string]bool{}
	walkFields(typ, func(name string, sf reflect.StructField) {
		switch sf.Type.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
			out[name] = true
		default:
			out[name] = false
		}
	})
	return out
}
