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

import "strings"

// OperationID joins the route tags and the handler name with "-". Without
// tags the handler name is used as is.
func OperationID(tags []string, name string) string {
	if len(tags) == 0 {
		return name
	}
	return strings.Join(tags, "-") + "-" + name
}

// DefaultServers puts rootPath in front of servers when it is more than "/".
func DefaultServers(rootPath string, servers []Server) []Server {
	out := make([]Server, 0, len(servers)+1)
	if strings.TrimRight(rootPath, "/") != "" {
		out = append(out, Server{URL: rootPath})
	}
	return append(out, servers...)
}

// NamedScheme pairs a security scheme with the key it is declared under.
type NamedScheme struct {
	Name   string
	Scheme SecurityScheme
}

func HTTPBearer(name string) NamedScheme {
	return NamedScheme{Name: name, Scheme: SecurityScheme{Type: "http", Scheme: "bearer"}}
}

func APIKeyHeader(name, header string) NamedScheme {
	return NamedScheme{Name: name, Scheme: SecurityScheme{Type: "apiKey", In: "header", Name: header}}
}

// AddSecurity declares each scheme under components and adds a global
// requirement for it. Only the declaration is produced; nothing is enforced.
func (d *Document) AddSecurity(schemes ...NamedScheme) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range schemes {
		d.components.SecuritySchemes[s.Name] = s.Scheme
		d.security = append(d.security, SecurityRequirement{s.Name: []string{}})
	}
	return d
}
