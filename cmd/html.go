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
	"path/filepath"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/gremlor/gremlor/internal/log"
	"github.com/gremlor/gremlor/internal/report"
)

type htmlCmd struct {
	cmd *cobra.Command
}

const paramHTMLDirectory = "directory"

func newHTMLCmd() (*htmlCmd, error) {
	cmd := &cobra.Command{
		Use:   "html [path]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Write the last run's mutants as a static HTML report",
		Long: heredoc.Doc(`
			Reads the persistent mutant cache populated by the last 'run' and writes
			index.html under --directory (default 'html'), one row per mutant.
		`),
		RunE: runHTML,
	}
	cmd.Flags().StringP(paramHTMLDirectory, "D", "html", "directory to write the report into")

	return &htmlCmd{cmd: cmd}, nil
}

func runHTML(cmd *cobra.Command, args []string) error {
	path := firstArg(args)

	mod, mutCache, testsHash, err := openModuleCache(path)
	if err != nil {
		return err
	}
	defer mutCache.Close()

	recs, err := mutCache.List(testsHash)
	if err != nil {
		return fmt.Errorf("failed to read mutant cache: %w", err)
	}

	out, err := report.HTML(mod.Name, toCachedMutants(recs))
	if err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}

	dir, _ := cmd.Flags().GetString(paramHTMLDirectory)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	outPath := filepath.Join(dir, "index.html")
	if err := os.WriteFile(outPath, out, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	log.Infof("wrote %s\n", outPath)

	return nil
}
