/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package cmd

import (
	"fmt"
	"os"

	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/gomodule"
)

// openModuleCache resolves the Go module at path (current directory if
// empty) and opens its persistent mutant cache, returning the module, the
// opened cache, and the tests hash the `run` command would have used to
// populate it.
func openModuleCache(path string) (gomodule.GoModule, *cache.Cache, string, error) {
	if path == "" {
		path, _ = os.Getwd()
	}

	mod, err := gomodule.Init(path)
	if err != nil {
		return gomodule.GoModule{}, nil, "", fmt.Errorf("not in a Go module: %w", err)
	}

	mutCache, err := openCache(mod)
	if err != nil {
		return gomodule.GoModule{}, nil, "", fmt.Errorf("failed to open mutant cache: %w", err)
	}

	return mod, mutCache, cache.TestsHash(mod.Root), nil
}
