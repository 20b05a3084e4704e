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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var querySilent atomic.Bool

// SilenceQueryLog mutes QueryHook and SlowQueryHook, used while migrating.
func SilenceQueryLog(silent bool) {
	querySilent.Store(silent)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

func paintQuery(event *bun.QueryEvent) string {
	if c, ok := operationColors[event.Operation()]; ok {
		return c.Sprint(event.Query)
	}
	return color.New(color.FgRed).Sprint(event.Query)
}

// QueryHook prints every statement, colored by operation. With Verbose off
// only failed statements are printed; sql.ErrNoRows is not a failure.
type QueryHook struct {
	Verbose bool
	Writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook(verbose bool) *QueryHook {
	return &QueryHook{Verbose: verbose, Writer: os.Stdout}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if querySilent.Load() {
		return
	}
	failed := event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone)
	if !h.Verbose && !failed {
		return
	}
	line := fmt.Sprintf("%s %s %12s  %s",
		time.Now().Format("2006-01-02 15:04:05.000"),
		color.New(color.FgCyan).Sprint("[SQL]"),
		time.Since(event.StartTime).Round(time.Microsecond),
		paintQuery(event),
	)
	if failed {
		line += "\t" + color.New(color.BgRed, color.FgWhite).Sprintf(" %T: %v ", event.Err, event.Err)
	}
	_, _ = fmt.Fprintln(h.Writer, line)
}

// SlowQueryHook logs successful statements that ran longer than Threshold.
type SlowQueryHook struct {
	Threshold time.Duration
	Logger    Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if querySilent.Load() || event.Err != nil || h.Logger == nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.Threshold {
		h.Logger.Warn("slow query",
			"operation", event.Operation(),
			"duration", d.Round(time.Microsecond),
			"threshold", h.Threshold,
			"query", event.Query,
		)
	}
}
