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
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/problem"
)

type settings struct {
	prefix     string
	tags       []string
	doc        *openapi.Document
	responder  *problem.Responder
	extensions []func(*gin.RouterGroup)
}

type Option func(*settings)

// WithPrefix mounts the resource under prefix, e.g. "/books".
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" && !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		s.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithTags groups the endpoints in the document and prefixes operation ids.
func WithTags(tags ...string) Option {
	return func(s *settings) { s.tags = append(s.tags, tags...) }
}

// WithDocument records every installed endpoint in doc.
func WithDocument(doc *openapi.Document) Option {
	return func(s *settings) { s.doc = doc }
}

func WithResponder(r *problem.Responder) Option {
	return func(s *settings) { s.responder = r }
}

// WithExtension adds routes to the resource group after the fixed set.
func WithExtension(fn func(*gin.RouterGroup)) Option {
	return func(s *settings) { s.extensions = append(s.extensions, fn) }
}
