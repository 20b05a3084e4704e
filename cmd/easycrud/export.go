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
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"github.com/tomoncle/easycrud"
	"github.com/tomoncle/easycrud/demo/bookstore"
	"github.com/tomoncle/easycrud/openapi"
)

type exportOptions struct {
	Output   string
	RootPath string
	Bearer   bool
}

func newOpenAPICommand() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "write the OpenAPI document without connecting to a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exportDocument(opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), opts.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "openapi.yaml", "output file, .json or .yaml")
	cmd.Flags().StringVar(&opts.RootPath, "root-path", "", "root path the API is served under")
	cmd.Flags().BoolVar(&opts.Bearer, "bearer", false, "declare HTTP bearer auth")
	return cmd
}

// exportDocument registers the resources on a throwaway engine and writes
// the collected document. The file is replaced atomically.
func exportDocument(opts *exportOptions) error {
	doc := openapi.New("easycrud", version).
		SetServers(openapi.DefaultServers(opts.RootPath, nil))
	if opts.Bearer {
		doc.AddSecurity(openapi.HTTPBearer("HTTPBearer"))
	}

	books := easycrud.NewService[bookstore.Book, bookstore.BookCreate, bookstore.BookUpdate](bookstore.FromCreate)
	bookstore.NewResource(books, doc).Register(gin.New())

	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(opts.Output)) {
	case ".json":
		raw, err = doc.MarshalJSON()
	case ".yaml", ".yml":
		raw, err = doc.YAML()
	default:
		return fmt.Errorf("unsupported output %q, use .json or .yaml", opts.Output)
	}
	if err != nil {
		return err
	}
	return atomic.WriteFile(opts.Output, bytes.NewReader(raw))
}
