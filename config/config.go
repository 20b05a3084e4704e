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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gin-gonic/gin"
	"github.com/tailscale/hujson"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/utils"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

type ServerConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	RootPath string `yaml:"root_path" toml:"root_path"`
	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode" toml:"mode"`
}

type LogConfig struct {
	Level  string               `yaml:"level" toml:"level"`
	Format string               `yaml:"format" toml:"format"`
	File   utils.FileLogOptions `yaml:"file" toml:"file"`
}

// AppConfig is the whole configuration file.
type AppConfig struct {
	Server   ServerConfig    `yaml:"server" toml:"server"`
	Log      LogConfig       `yaml:"log" toml:"log"`
	Database database.Config `yaml:"database" toml:"database"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server:   ServerConfig{Addr: ":8080", Mode: gin.ReleaseMode},
		Log:      LogConfig{Level: "info", Format: "text"},
		Database: *database.DefaultConfig(),
	}
}

// Load reads path (YAML, TOML or JSON with comments) over the defaults, applies environment overrides and
// validates the result. An empty path uses defaults and the environment only.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.OverrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, raw []byte, cfg *AppConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, cfg)
	case ".toml":
		return toml.Unmarshal(raw, cfg)
	case ".json", ".jsonc", ".hujson":
		// standard JSON is a YAML subset, so the yaml tags and duration strings apply
		std, err := hujson.Standardize(raw)
		if err != nil {
			return fmt.Errorf("invalid JSONC: %w", err)
		}
		return yaml.Unmarshal(std, cfg)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// OverrideFromEnv applies SERVER_ADDR, SERVER_ROOT_PATH, GIN_MODE, LOG_LEVEL,
// CONSOLE_LOG_FORMAT and the DB_* variables.
func (c *AppConfig) OverrideFromEnv() {
	c.Server.Addr = utils.EnvDefaultString("SERVER_ADDR", c.Server.Addr)
	c.Server.RootPath = utils.EnvDefaultString("SERVER_ROOT_PATH", c.Server.RootPath)
	c.Server.Mode = utils.EnvDefaultString(gin.EnvGinMode, c.Server.Mode)
	c.Log.Level = utils.EnvDefaultString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = utils.EnvDefaultString("CONSOLE_LOG_FORMAT", c.Log.Format)
	database.OverrideFromEnv(&c.Database.Connection)
}

func (c *AppConfig) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("server.mode %q must be one of debug, release, test", c.Server.Mode)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// ApplyLogging configures the named loggers from the log section.
func (c *AppConfig) ApplyLogging() {
	utils.ConfigureConsoleLogFormat(c.Log.Format)
	if c.Log.File.Enabled {
		utils.ConfigureFileLog(c.Log.File)
	}
	utils.ConfigureLogLevel(c.Log.Level)
}
