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
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tomoncle/easycrud/database"
)

const unmatchedRoute = "unmatched"

// Metrics counts requests and observes their latency per route.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the HTTP collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := fmtFixer(namespace)
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "requests_total",
			Help:      "HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	registry.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Requests() *prometheus.CounterVec { return m.requests }

// ObservePool exports connection pool gauges read from stats at scrape time.
func (m *Metrics) ObservePool(namespace string, stats func() *database.DBStats) {
	ns := fmtFixer(namespace)
	gauge := func(name, help string, read func(*database.DBStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(stats()) })
	}
	m.registry.MustRegister(
		gauge("open_connections", "Open connections in the pool.", func(s *database.DBStats) float64 { return float64(s.OpenConns) }),
		gauge("in_use_connections", "Connections currently in use.", func(s *database.DBStats) float64 { return float64(s.InUse) }),
		gauge("idle_connections", "Idle connections in the pool.", func(s *database.DBStats) float64 { return float64(s.Idle) }),
		gauge("wait_count", "Connections waited for.", func(s *database.DBStats) float64 { return float64(s.WaitCount) }),
	)
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return gin.WrapH(h)
}

func fmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
