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
	"strconv"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/log"
)

type showCmd struct {
	cmd *cobra.Command
}

func newShowCmd() (*showCmd, error) {
	cmd := &cobra.Command{
		Use:   "show [<pk>|all|<file>]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Print a mutant's location and verdict from the last run",
		Long: heredoc.Doc(`
			Without arguments, or with 'all', prints every cached mutant from the last
			'run'. Given a pk, prints only that mutant. Given anything else, treats the
			argument as a filename and prints the mutants cached for that file.
		`),
		RunE: runShow,
	}

	return &showCmd{cmd: cmd}, nil
}

func runShow(_ *cobra.Command, args []string) error {
	arg := firstArg(args)

	_, mutCache, testsHash, err := openModuleCache("")
	if err != nil {
		return err
	}
	defer mutCache.Close()

	if pk, err := strconv.ParseUint(arg, 10, 64); err == nil {
		rec, ok := mutCache.GetByID(uint(pk))
		if !ok {
			return fmt.Errorf("no mutant with pk %d", pk)
		}

		printRecord(rec)

		return nil
	}

	recs, err := mutCache.List(testsHash)
	if err != nil {
		return fmt.Errorf("failed to read mutant cache: %w", err)
	}

	if arg != "" && arg != "all" {
		recs = filterByFile(recs, arg)
	}

	if len(recs) == 0 {
		log.Infoln("No cached mutants found.")

		return nil
	}

	for _, rec := range recs {
		printRecord(rec)
	}

	return nil
}

func filterByFile(recs []cache.Record, file string) []cache.Record {
	var filtered []cache.Record
	for _, r := range recs {
		if r.Filename == file {
			filtered = append(filtered, r)
		}
	}

	return filtered
}

func printRecord(rec cache.Record) {
	log.Infof("#%d %s:%d: %s — %s\n", rec.ID, rec.Filename, rec.LineNumber, rec.MutantType, rec.Status)
}
