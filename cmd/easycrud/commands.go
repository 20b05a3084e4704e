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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tomoncle/easycrud"
	"github.com/tomoncle/easycrud/config"
	"github.com/tomoncle/easycrud/database"
	"github.com/tomoncle/easycrud/demo/bookstore"
	"github.com/tomoncle/easycrud/openapi"
	"github.com/tomoncle/easycrud/server"
)

type options struct {
	ConfigPath string
	Migrate    bool
	Bearer     bool
}

func (o *options) addFlags(flagSet *pflag.FlagSet, withServe bool) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "config file (.yaml, .yml, .toml or .jsonc)")
	if withServe {
		flagSet.BoolVar(&o.Migrate, "migrate", false, "create registered tables before serving")
		flagSet.BoolVar(&o.Bearer, "bearer", false, "declare HTTP bearer auth in the OpenAPI document")
	}
}

func newServeCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the bookstore resource",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	opts.addFlags(cmd.Flags(), true)
	return cmd
}

func newMigrateCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create the tables of registered models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(cmd.Context(), opts)
		},
	}
	opts.addFlags(cmd.Flags(), false)
	return cmd
}

func setup(ctx context.Context, opts *options) (*config.AppConfig, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyLogging()
	if opts.Migrate {
		cfg.Database.Migrate.EnableMigrateOnStartup = true
	}
	if _, err := database.InitDB(ctx, &cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer database.CloseDB()

	serverOpts := []server.Option{server.WithVersion(version)}
	if opts.Bearer {
		serverOpts = append(serverOpts, server.WithSecurity(openapi.HTTPBearer("HTTPBearer")))
	}
	srv, err := server.New(ctx, cfg, serverOpts...)
	if err != nil {
		return err
	}
	books := easycrud.NewService[bookstore.Book, bookstore.BookCreate, bookstore.BookUpdate](bookstore.FromCreate)
	bookstore.NewResource(books, srv.Document()).Register(srv.Engine())
	return srv.Run(ctx)
}

func migrate(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Migrate = false
	if _, err := setup(ctx, opts); err != nil {
		return err
	}
	defer database.CloseDB()
	return database.RunMigrations(ctx)
}
