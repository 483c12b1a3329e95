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

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/log"
	"github.com/gremlor/gremlor/internal/mutator"
)

type resultsCmd struct {
	cmd *cobra.Command
}

// reportableStatuses groups mutator.Status values worth surfacing to a user
// reviewing past findings without re-running the test suite.
var reportableStatuses = []mutator.Status{
	mutator.Lived,
	mutator.Suspicious,
	mutator.TimedOut,
}

func newResultsCmd() (*resultsCmd, error) {
	cmd := &cobra.Command{
		Use:   "results [path]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Print surviving, suspicious, and timed-out mutants from the last run",
		Long: heredoc.Doc(`
			Reads the persistent mutant cache populated by the last 'run' and prints
			the mutants that a regression suite should worry about: those that lived,
			those flagged suspicious, and those that timed out. Mutants are grouped by
			file and listed with their cache pk, the number 'apply' and 'show' use to
			address them.
		`),
		RunE: runResults,
	}

	return &resultsCmd{cmd: cmd}, nil
}

func runResults(_ *cobra.Command, args []string) error {
	path := firstArg(args)

	_, mutCache, testsHash, err := openModuleCache(path)
	if err != nil {
		return err
	}
	defer mutCache.Close()

	recs, err := mutCache.List(testsHash)
	if err != nil {
		return fmt.Errorf("failed to read mutant cache: %w", err)
	}

	printByFile(recs, reportableStatuses)

	return nil
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return ""
}

func isReportable(status mutator.Status, wanted []mutator.Status) bool {
	for _, s := range wanted {
		if s == status {
			return true
		}
	}

	return false
}

func printByFile(recs []cache.Record, wanted []mutator.Status) {
	byFile := map[string][]cache.Record{}
	var order []string
	for _, r := range recs {
		status := statusFromRecord(r)
		if !isReportable(status, wanted) {
			continue
		}
		if _, ok := byFile[r.Filename]; !ok {
			order = append(order, r.Filename)
		}
		byFile[r.Filename] = append(byFile[r.Filename], r)
	}

	if len(order) == 0 {
		log.Infoln("No surviving, suspicious, or timed-out mutants found.")

		return
	}

	for _, fn := range order {
		ids := make([]string, 0, len(byFile[fn]))
		for _, r := range byFile[fn] {
			ids = append(ids, fmt.Sprintf("%d", r.ID))
		}
		log.Infof("%s: %s\n", fn, joinIDRanges(ids))
	}
}

func statusFromRecord(r cache.Record) mutator.Status {
	for _, st := range []mutator.Status{
		mutator.NotCovered, mutator.Runnable, mutator.Lived, mutator.Killed,
		mutator.NotViable, mutator.TimedOut, mutator.Suspicious, mutator.Skipped,
	} {
		if st.String() == r.Status {
			return st
		}
	}

	return mutator.NotCovered
}

// joinIDRanges is a plain comma join; the cache pks already come out
// sorted by discovery order from List, which is the best approximation of
// "ranges" available without re-running the analysis that assigned them.
func joinIDRanges(ids []string) string {
	out := ids[0]
	for _, id := range ids[1:] {
		out += ", " + id
	}

	return out
}
