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

package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/easycrud/database"
)

// ContentType is the media type of every problem response.
const ContentType = "application/problem+json"

// Mapper turns an error into a problem when it recognizes it.
type Mapper func(err error) (Detail, bool)

// Responder writes problem responses, consulting its mappers in order before
// falling back to a 500.
type Responder struct {
	BaseURI string
	mappers []Mapper
}

func NewResponder(baseURI string, mappers ...Mapper) *Responder {
	return &Responder{BaseURI: baseURI, mappers: mappers}
}

// Default recognizes validation, decoding and store errors.
var Default = NewResponder("", Validation, Decoding, Store)

// With returns a copy that tries extra before the existing mappers.
func (r *Responder) With(extra ...Mapper) *Responder {
	mappers := make([]Mapper, 0, len(extra)+len(r.mappers))
	mappers = append(mappers, extra...)
	mappers = append(mappers, r.mappers...)
	return &Responder{BaseURI: r.BaseURI, mappers: mappers}
}

func (r *Responder) Respond(c *gin.Context, p Detail) {
	if r.BaseURI != "" && len(p.Type) > 0 && p.Type[0] == '/' {
		p.Type = r.BaseURI + p.Type
	}
	if p.Instance == "" && c.Request != nil {
		p.Instance = c.Request.URL.Path
	}
	_ = c.Error(p)
	c.Header("Content-Type", ContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

func (r *Responder) RespondError(c *gin.Context, err error) {
	r.Respond(c, r.Resolve(err))
}

// Resolve maps err without writing anything.
func (r *Responder) Resolve(err error) Detail {
	var p Detail
	if errors.As(err, &p) {
		return p
	}
	for _, m := range r.mappers {
		if p, ok := m(err); ok {
			return p
		}
	}
	return ErrInternal.WithDetail(err.Error())
}

func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

// Validation maps validator failures to a 400 with one entry per field.
// Failures from a bound slice are merged by field name.
func Validation(err error) (Detail, bool) {
	var items binding.SliceValidationError
	if errors.As(err, &items) {
		fields := map[string]string{}
		for _, item := range items {
			var verrs validator.ValidationErrors
			if errors.As(item, &verrs) {
				collectFields(fields, verrs)
			}
		}
		return NewValidation(fields), true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Detail{}, false
	}
	fields := make(map[string]string, len(verrs))
	collectFields(fields, verrs)
	return NewValidation(fields), true
}

func collectFields(fields map[string]string, verrs validator.ValidationErrors) {
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		}
		fields[fe.Field()] = msg
	}
}

// Decoding maps malformed bodies and parameters to a 400.
func Decoding(err error) (Detail, bool) {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		numErr    *strconv.NumError
	)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrBadRequest.WithDetail("request body is empty or truncated"), true
	case errors.As(err, &syntaxErr):
		return ErrBadRequest.WithDetail(fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)), true
	case errors.As(err, &typeErr):
		return ErrBadRequest.WithDetail(fmt.Sprintf("field %q expects %s", typeErr.Field, typeErr.Type)), true
	case errors.As(err, &numErr):
		return ErrBadRequest.WithDetail(fmt.Sprintf("%q is not a valid number", numErr.Num)), true
	}
	return Detail{}, false
}

// Store maps database failures to a 500 naming the classified kind.
func Store(err error) (Detail, bool) {
	is, kind := database.Classify(err)
	if !is {
		return Detail{}, false
	}
	return ErrInternal.WithDetail(kind.Desc()).WithExtension("sql_error", kind.Name()), true
}

// Status returns the HTTP status err maps to under the default responder.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Default.Resolve(err).Status
}

func Respond(c *gin.Context, p Detail) { Default.Respond(c, p) }

func RespondError(c *gin.Context, err error) { Default.RespondError(c, err) }
