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
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:          "easycrud",
		Short:        "CRUD REST service over a relational database",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newOpenAPICommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
