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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/easycrud/entity"
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/problem"
	"github.com/tomoncle/easycrud/repository"
	"github.com/tomoncle/easycrud/utils"
)

var logger = utils.NewLogger("ROUTER")

// Resource exposes one repository over HTTP. T is the entity, R its read
// schema, C its create schema and U its update schema.
type Resource[T entity.Model, R any, C any, U any] struct {
	repo     repository.CrudRepository[T, C, U]
	toRead   func(*T) *R
	settings settings
	extend   []func(*gin.RouterGroup, *Resource[T, R, C, U])
}

func New[T entity.Model, R any, C any, U any](repo repository.CrudRepository[T, C, U], toRead func(*T) *R, opts ...Option) *Resource[T, R, C, U] {
	s := settings{responder: problem.Default}
	for _, opt := range opts {
		opt(&s)
	}
	s.responder = s.responder.With(invalidPatch)
	return &Resource[T, R, C, U]{repo: repo, toRead: toRead, settings: s}
}

// Extend adds a hook that runs after the fixed endpoints are installed. The
// hook receives the resource so it can reach the repository.
func (r *Resource[T, R, C, U]) Extend(fn func(*gin.RouterGroup, *Resource[T, R, C, U])) *Resource[T, R, C, U] {
	r.extend = append(r.extend, fn)
	return r
}

func (r *Resource[T, R, C, U]) Repository() repository.CrudRepository[T, C, U] { return r.repo }

func (r *Resource[T, R, C, U]) Prefix() string { return r.settings.prefix }

func (r *Resource[T, R, C, U]) Tags() []string { return r.settings.tags }

func (r *Resource[T, R, C, U]) Document() *openapi.Document { return r.settings.doc }

func (r *Resource[T, R, C, U]) Responder() *problem.Responder { return r.settings.responder }

// Register installs the fixed endpoint set under the prefix, then runs the
// extension hooks on the same group.
func (r *Resource[T, R, C, U]) Register(router gin.IRouter) *gin.RouterGroup {
	g := router.Group(r.settings.prefix)

	r.handle(g, http.MethodGet, "/all", "get_all", r.getAll)
	r.handle(g, http.MethodGet, "/batch_get", "get_by_ids", r.getByIDs)
	r.handle(g, http.MethodGet, "/get", "get_by_id", r.getByID)
	r.handle(g, http.MethodPost, "/create", "create", r.create)
	r.handle(g, http.MethodPost, "/batch_create", "batch_create", r.batchCreate)
	r.handle(g, http.MethodPost, "/batch_create_silently", "batch_create_silently", r.batchCreateSilently)
	r.handle(g, http.MethodPut, "/update", "update", r.update)
	r.handle(g, http.MethodPut, "/update_by_id", "update_by_id", r.updateByID)
	r.handle(g, http.MethodDelete, "/delete", "delete", r.delete)

	for _, fn := range r.settings.extensions {
		fn(g)
	}
	for _, fn := range r.extend {
		fn(g, r)
	}
	return g
}

// Handle installs an extra endpoint on g and documents it like the fixed set.
func (r *Resource[T, R, C, U]) Handle(g *gin.RouterGroup, method, path, name string, op *openapi.Operation, handler gin.HandlerFunc) {
	g.Handle(method, path, handler)
	if doc := r.settings.doc; doc != nil {
		if op == nil {
			op = &openapi.Operation{}
		}
		op.OperationID = openapi.OperationID(r.settings.tags, name)
		if op.Tags == nil {
			op.Tags = r.settings.tags
		}
		doc.AddOperation(method, g.BasePath()+path, op)
	}
}

func (r *Resource[T, R, C, U]) handle(g *gin.RouterGroup, method, path, name string, handler gin.HandlerFunc) {
	var op *openapi.Operation
	if r.settings.doc != nil {
		op = r.operation(name)
	}
	r.Handle(g, method, path, name, op, handler)
}

// Fail writes err as a problem response and logs server-side failures.
func (r *Resource[T, R, C, U]) Fail(c *gin.Context, err error) {
	p := r.settings.responder.Resolve(err)
	if p.Status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"uri":    c.Request.URL.Path,
			"method": c.Request.Method,
		}).WithError(err).Error("request failed")
	}
	r.settings.responder.Respond(c, p)
}

// Read converts an entity to its read schema; nil stays nil.
func (r *Resource[T, R, C, U]) Read(e *T) *R {
	if e == nil {
		return nil
	}
	return r.toRead(e)
}

func (r *Resource[T, R, C, U]) ReadAll(entities []*T) []*R {
	return lo.Map(entities, func(e *T, _ int) *R { return r.Read(e) })
}

func invalidPatch(err error) (problem.Detail, bool) {
	if errors.Is(err, repository.ErrInvalidPatch) || errors.Is(err, errBadInput) {
		return problem.ErrBadRequest.WithDetail(err.Error()), true
	}
	return problem.Detail{}, false
}
