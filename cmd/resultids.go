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
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/gremlor/gremlor/internal/log"
	"github.com/gremlor/gremlor/internal/mutator"
)

func newResultIDsCmd() (*resultsCmd, error) {
	cmd := &cobra.Command{
		Use:   "result-ids <status>",
		Args:  cobra.ExactArgs(1),
		Short: "Print the cache pks of mutants in the given status",
		Long: heredoc.Doc(`
			Prints the pks of every cached mutant whose status matches <status> as a
			space-separated list, suitable for piping into 'apply'. <status> is a
			mutant status name such as lived, killed, suspicious, timed-out,
			not-viable, not-covered, runnable, or skipped.
		`),
		RunE: runResultIDs,
	}

	return &resultsCmd{cmd: cmd}, nil
}

func runResultIDs(_ *cobra.Command, args []string) error {
	status, err := parseStatusName(args[0])
	if err != nil {
		return err
	}

	_, mutCache, testsHash, err := openModuleCache("")
	if err != nil {
		return err
	}
	defer mutCache.Close()

	recs, err := mutCache.List(testsHash)
	if err != nil {
		return fmt.Errorf("failed to read mutant cache: %w", err)
	}

	var ids []string
	for _, r := range recs {
		if statusFromRecord(r) == status {
			ids = append(ids, fmt.Sprintf("%d", r.ID))
		}
	}

	log.Infoln(strings.Join(ids, " "))

	return nil
}

func parseStatusName(s string) (mutator.Status, error) {
	name := strings.ToUpper(strings.ReplaceAll(s, "-", " "))
	for _, st := range []mutator.Status{
		mutator.NotCovered, mutator.Runnable, mutator.Lived, mutator.Killed,
		mutator.NotViable, mutator.TimedOut, mutator.Suspicious, mutator.Skipped,
	} {
		if st.String() == name {
			return st, nil
		}
	}

	return 0, fmt.Errorf("unknown status %q", s)
}
