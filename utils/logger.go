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

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

// FileLogOptions controls the rotating file output shared by every named logger.
type FileLogOptions struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Dir        string `yaml:"dir" toml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

var (
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	consoleOutput    io.Writer = os.Stdout
	fileLog          = FileLogOptions{
		Enabled:    EnvDefaultBool("FILE_LOG_ENABLED", false),
		Dir:        EnvDefaultString("FILE_LOG_DIR", "logs"),
		MaxSizeMB:  100,
		MaxBackups: 7,
		MaxAgeDays: 30,
	}
	fileWriters = map[string]*lumberjack.Logger{}
)

// ConfigureConsoleLogFormat switches console output between "text" and "json"
// for loggers created afterwards.
func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

func ConfigureFileLog(opts FileLogOptions) {
	if opts.Dir == "" {
		opts.Dir = fileLog.Dir
	}
	fileLog = opts
}

// ConfigureLogLevel sets the level of every registered logger and of those
// created afterwards.
func ConfigureLogLevel(levelStr string) {
	defaultLevel = ParseLogLevel(levelStr)
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(defaultLevel)
	}
	loggerRegistryMu.RUnlock()
	logrus.SetLevel(defaultLevel)
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLoggerLevel changes one registered logger; false when name is unknown.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// NewLogger returns the logger registered under name, creating it on first use.
func NewLogger(name string) *logrus.Logger {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	if l, ok := loggerRegistry[name]; ok {
		return l
	}
	l := logrus.New()
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	l.SetOutput(consoleOutput)
	if consoleLogFormat == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name})
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10})
	}
	if fileLog.Enabled {
		l.AddHook(newRotatingFileHook(name))
	}
	loggerRegistry[name] = l
	return l
}

// rotatingFileHook mirrors entries to <dir>/<name>.log in JSON.
type rotatingFileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func newRotatingFileHook(name string) *rotatingFileHook {
	path := filepath.Join(fileLog.Dir, strings.ToLower(name)+".log")
	w, ok := fileWriters[path]
	if !ok {
		w = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    fileLog.MaxSizeMB,
			MaxBackups: fileLog.MaxBackups,
			MaxAge:     fileLog.MaxAgeDays,
			Compress:   fileLog.Compress,
			LocalTime:  true,
		}
		fileWriters[path] = w
	}
	return &rotatingFileHook{writer: w, formatter: &JSONLogFormatter{LoggerName: name}}
}

func (h *rotatingFileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *rotatingFileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

// Log4jColorFormatter renders "<time> <LEVEL> <pid> --- <name> <caller> : <msg> k=v".
type Log4jColorFormatter struct {
	LoggerName string
	NameWidth  int
	NoColor    bool
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(f.paint(levelColor(entry.Level), fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))))
	b.WriteByte(' ')
	b.WriteString(f.paint(color.New(color.FgMagenta), fmt.Sprintf("%-6d", os.Getpid())))
	b.WriteString(" --- ")
	b.WriteString(f.paint(color.New(color.FgCyan), fmt.Sprintf("%*s", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth))))
	if entry.Caller != nil {
		b.WriteString(f.paint(color.New(color.Faint), fmt.Sprintf(" %s:%d", shortCaller(entry.Caller.File), entry.Caller.Line)))
	}
	b.WriteString(" : ")
	b.WriteString(entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *Log4jColorFormatter) paint(c *color.Color, s string) string {
	if f.NoColor {
		return s
	}
	return c.Sprint(s)
}

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return color.New(color.FgRed)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.InfoLevel:
		return color.New(color.FgGreen)
	case logrus.DebugLevel:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgMagenta)
	}
}

// JSONLogFormatter writes one JSON object per entry. Request fields set by
// the HTTP middleware are lifted to the top level.
type JSONLogFormatter struct {
	LoggerName string
}

type jsonLogRecord struct {
	Time        string                 `json:"time"`
	Level       string                 `json:"level"`
	Logger      string                 `json:"logger"`
	Caller      string                 `json:"caller,omitempty"`
	Message     string                 `json:"message"`
	RequestID   string                 `json:"request_id,omitempty"`
	ClientIP    string                 `json:"client_ip,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Path        string                 `json:"path,omitempty"`
	StatusCode  int                    `json:"status_code,omitempty"`
	LatencyTime string                 `json:"latency_time,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	rec := jsonLogRecord{
		Time:    entry.Time.Format(timestampFormat),
		Level:   entry.Level.String(),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = fmt.Sprintf("%s:%d", shortCaller(entry.Caller.File), entry.Caller.Line)
	}
	extra := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		s, isString := v.(string)
		switch {
		case k == "request_id" && isString:
			rec.RequestID = s
		case k == "req_uri" && isString:
			rec.Path = s
		case k == "req_method" && isString:
			rec.Method = s
		case k == "client_ip" && isString:
			rec.ClientIP = s
		case k == "latency_time" && isString:
			rec.LatencyTime = s
		case k == "status_code":
			if n, ok := v.(int); ok {
				rec.StatusCode = n
			} else {
				extra[k] = v
			}
		default:
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		rec.Fields = extra
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func shortCaller(file string) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return parts[0]
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sortedKeys(m logrus.Fields) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// Since formats an elapsed duration the way request logs print it.
func Since(start time.Time) string {
	return time.Since(start).Round(time.Microsecond).String()
}
