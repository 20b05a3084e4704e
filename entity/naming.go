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

package entity

import (
	"reflect"
	"strings"
)

// Namer lets an entity override its derived table name.
type Namer interface {
	TableName() string
}

// TableName converts a type name to a table name: an underscore goes before
// every ASCII upper-case letter except the first, then everything is lowered.
//
//	UserProfile -> user_profile
//	HTTPLog     -> h_t_t_p_log
func TableName(typeName string) string {
	var b strings.Builder
	b.Grow(len(typeName) + 4)
	for i := 0; i < len(typeName); i++ {
		c := typeName[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// TableNameFor resolves the table name of a struct type or a pointer to one.
func TableNameFor(typ reflect.Type) string {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if n, ok := reflect.New(typ).Interface().(Namer); ok {
		if name := n.TableName(); name != "" {
			return name
		}
	}
	return TableName(typ.Name())
}

// TableNameOf is TableNameFor for a type parameter.
func TableNameOf[T any]() string {
	return TableNameFor(reflect.TypeOf((*T)(nil)).Elem())
}
