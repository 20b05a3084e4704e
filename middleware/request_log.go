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

package middleware

import (
	"bytes"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/easycrud/utils"
)

const (
	HeaderRequestID   = "X-Request-Id"
	HeaderProcessTime = "X-Process-Time"

	// RequestIDKey holds the request id in the gin context.
	RequestIDKey = "request_id"

	maxLoggedBody = 64 << 10
)

// stampWriter sets X-Process-Time just before the header is flushed and keeps
// a bounded copy of the body.
type stampWriter struct {
	gin.ResponseWriter
	start time.Time
	body  bytes.Buffer
}

func (w *stampWriter) stamp() {
	if !w.Written() {
		w.Header().Set(HeaderProcessTime, processTime(w.start))
	}
}

func (w *stampWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *stampWriter) Write(data []byte) (int, error) {
	w.stamp()
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *stampWriter) WriteString(s string) (int, error) {
	w.stamp()
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *stampWriter) capture(data []byte) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(data) > room {
			data = data[:room]
		}
		w.body.Write(data)
	}
}

func processTime(start time.Time) string {
	return strconv.FormatFloat(time.Since(start).Seconds(), 'f', 6, 64)
}

// RequestID returns the id RequestLog assigned to c, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RequestLog tags every request with a fresh UUID, logs it on entry and exit
// and reports the elapsed seconds in X-Process-Time. Responses with status
// 400 or above also have their body logged.
func RequestLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Set(RequestIDKey, id)
		c.Header(HeaderRequestID, id)

		w := &stampWriter{ResponseWriter: c.Writer, start: start}
		c.Writer = w

		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"req_uri":    c.Request.RequestURI,
			"req_method": c.Request.Method,
			"client_ip":  c.ClientIP(),
		})
		entry.Info("request started")

		c.Next()

		w.stamp()
		status := w.Status()
		entry = entry.WithFields(logrus.Fields{
			"status_code":  status,
			"latency_time": utils.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		if status >= 400 {
			entry.WithField("response_body", w.body.String()).Warn("request failed")
			return
		}
		entry.Info("request finished")
	}
}
