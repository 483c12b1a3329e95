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

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/report"
)

type junitXMLCmd struct {
	cmd *cobra.Command
}

func newJUnitXMLCmd() (*junitXMLCmd, error) {
	cmd := &cobra.Command{
		Use:   "junitxml [path]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Write the last run's mutants as a JUnit XML report",
		Long: heredoc.Doc(`
			Reads the persistent mutant cache populated by the last 'run' and prints a
			JUnit test suite to stdout: one testcase per mutant, failed for every
			mutant that lived, was suspicious, or timed out.
		`),
		RunE: runJUnitXML,
	}

	return &junitXMLCmd{cmd: cmd}, nil
}

func runJUnitXML(_ *cobra.Command, args []string) error {
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

	out, err := report.JUnitXML(mod.Name, toCachedMutants(recs))
	if err != nil {
		return fmt.Errorf("failed to render junit xml: %w", err)
	}

	_, err = os.Stdout.Write(out)

	return err
}

func toCachedMutants(recs []cache.Record) []report.CachedMutant {
	out := make([]report.CachedMutant, 0, len(recs))
	for _, r := range recs {
		out = append(out, report.CachedMutant{
			ID:       r.ID,
			Filename: r.Filename,
			Line:     r.LineNumber,
			Type:     r.MutantType,
			Status:   r.Status,
		})
	}

	return out
}
