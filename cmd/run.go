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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gremlor/gremlor/cmd/internal/flags"
	"github.com/gremlor/gremlor/internal/baseline"
	"github.com/gremlor/gremlor/internal/cache"
	"github.com/gremlor/gremlor/internal/configuration"
	"github.com/gremlor/gremlor/internal/coverage"
	"github.com/gremlor/gremlor/internal/diff"
	"github.com/gremlor/gremlor/internal/engine"
	"github.com/gremlor/gremlor/internal/engine/workdir"
	"github.com/gremlor/gremlor/internal/exclusion"
	"github.com/gremlor/gremlor/internal/gomodule"
	"github.com/gremlor/gremlor/internal/log"
	"github.com/gremlor/gremlor/internal/mutator"
	"github.com/gremlor/gremlor/internal/report"
)

type runCmd struct {
	cmd *cobra.Command
}

const (
	commandName = "run"

	paramBuildTags          = "tags"
	paramDryRun             = "dry-run"
	paramOutput             = "output"
	paramOutputStatuses     = "output-statuses"
	paramIntegrationMode    = "integration"
	paramTestCPU            = "test-cpu"
	paramWorkers            = "workers"
	paramTimeoutCoefficient = "timeout-coefficient"
	paramCoverPkg           = "coverpkg"
	paramDiff               = "diff"
	paramExcludeFiles       = "paths-to-exclude"
	paramUseCoverage        = "use-coverage"
	paramCoverageProfile    = "coverage-profile"
	paramUsePatchFile       = "use-patch-file"
	paramCache              = "cache"
	paramCI                 = "ci"
	paramTestTimeBase       = "test-time-base"
	paramTestTimeMult       = "test-time-multiplier"
	paramNameWhitelist      = "name-whitelist"
	paramPreMutation        = "pre-mutation"
	paramPostMutation       = "post-mutation"

	// Thresholds.
	paramThresholdEfficacy  = "threshold-efficacy"
	paramThresholdMCoverage = "threshold-mcover"
)

func newRunCmd(ctx context.Context) (*runCmd, error) {
	cmd := &cobra.Command{
		Use:     fmt.Sprintf("%s [path]", commandName),
		Aliases: []string{"unleash", "r"},
		Args:    cobra.MaximumNArgs(1),
		Short:   "Run mutation testing on a Go module",
		Long:    longExplainer(),
		RunE:    runRun(ctx),
	}

	if err := setFlagsOnCmd(cmd); err != nil {
		return nil, err
	}

	return &runCmd{cmd: cmd}, nil
}

func longExplainer() string {
	return heredoc.Doc(`
		Performs mutation testing on a Go module. It works by first gathering the
		coverage of the test suite and then analysing the source code to look for
		supported mutants.

		By default it only tests covered mutants, since it doesn't make sense to test
		mutants that no test case is able to catch.

		In 'dry-run' mode, it only performs the analysis of the source code, but it
		doesn't actually run the tests.

		Thresholds are configurable quality gates that make the command exit with an
		error if those values are not met. Efficacy is the percent of KILLED mutants
		over the total KILLED and LIVED mutants. Mutant coverage is the percent of
		total KILLED + LIVED mutants, over the total mutants.
	`)
}

func runRun(ctx context.Context) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		log.Infoln("Starting...")
		path, _ := os.Getwd()
		if len(args) > 0 {
			path = args[0]
		}
		mod, err := gomodule.Init(path)
		if err != nil {
			return fmt.Errorf("not in a Go module: %w", err)
		}

		workDir, err := os.MkdirTemp(os.TempDir(), "gremlor-")
		if err != nil {
			return fmt.Errorf("impossible to create the workdir: %w", err)
		}
		defer cleanUp(workDir)

		wg := &sync.WaitGroup{}
		wg.Add(1)
		cancelled := false
		var results report.Results
		go runWithCancel(ctx, wg, func(c context.Context) {
			results, err = run(c, mod, workDir)
		}, func() {
			cancelled = true
		})
		wg.Wait()
		if err != nil {
			return err
		}
		if cancelled {
			return nil
		}

		ci := configuration.Get[bool](configuration.UnleashCIKey)
		reportErr := report.Do(results)
		exitCode := results.ExitCode(reportErr, ci)
		if exitCode != 0 {
			os.Exit(exitCode)
		}

		return nil
	}
}

func runWithCancel(ctx context.Context, wg *sync.WaitGroup, runner func(c context.Context), onCancel func()) {
	c, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		log.Infof("\nShutting down gracefully...\n")
		cancel()
		onCancel()
	}()
	runner(c)
	wg.Done()
}

func cleanUp(wd string) {
	if err := os.RemoveAll(wd); err != nil {
		log.Errorf("impossible to remove temporary folder: %s\n\t%s", err, wd)
	}
}

func run(ctx context.Context, mod gomodule.GoModule, workDir string) (report.Results, error) {
	cProfile, elapsed, err := gatherCoverage(workDir, mod)
	if err != nil {
		return report.Results{}, err
	}

	mutCache, err := openCache(mod)
	if err != nil {
		return report.Results{}, fmt.Errorf("failed to open mutant cache: %w", err)
	}
	defer mutCache.Close()

	testsHash := cache.TestsHash(mod.Root)
	if _, ok := mutCache.Baseline(testsHash); !ok {
		baselineElapsed, err := baseline.Measure(ctx, mod.Root, baseline.CommandRunner)
		if err != nil {
			return report.Results{}, err
		}
		if err := mutCache.SetBaseline(testsHash, baselineElapsed); err != nil {
			log.Errorf("failed to persist baseline to cache: %v\n", err)
		}
	}

	mutDiff, err := gatherDiff()
	if err != nil {
		return report.Results{}, fmt.Errorf("failed to gather diff: %w", err)
	}

	excl, err := exclusion.New()
	if err != nil {
		return report.Results{}, fmt.Errorf("failed to parse exclusion rules: %w", err)
	}

	wdDealer := workdir.NewCachedDealer(workDir, mod.Root)
	defer wdDealer.Clean()

	jDealer := engine.NewExecutorDealer(mod, wdDealer, elapsed)

	codeData := engine.CodeData{
		Cov:       cProfile,
		Diff:      mutDiff,
		Exclusion: excl,
	}

	mut := engine.New(mod, codeData, jDealer, engine.WithCache(mutCache, testsHash))
	results, err := mut.Run(ctx)
	if err != nil {
		return report.Results{}, err
	}

	persistResults(mutCache, testsHash, results)

	return results, nil
}

// persistResults records every mutant's verdict in the cache so that
// `results`, `show`, `result-ids`, `apply`, `junitxml`, and `html` can
// address the same run's findings by a stable pk without re-executing
// the test suite.
func persistResults(mutCache *cache.Cache, testsHash string, results report.Results) {
	for _, m := range sortedMutants(results.Mutants) {
		pos := m.Position()
		if err := mutCache.PutWithMeta(m.ID(), testsHash, m.Status(), m.Type().String(), pos.Line); err != nil {
			log.Errorf("failed to persist mutant to cache: %v\n", err)
		}
	}
}

func sortedMutants(mutants []mutator.Mutator) []mutator.Mutator {
	ordered := make([]mutator.Mutator, len(mutants))
	copy(ordered, mutants)
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := ordered[i].Position(), ordered[j].Position()
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}

		return pi.Column < pj.Column
	})

	return ordered
}

// openCache opens the persistent mutant cache at the configured path, or at
// cache.DefaultFileName under the module root if none was configured.
func openCache(mod gomodule.GoModule) (*cache.Cache, error) {
	path := configuration.Get[string](configuration.UnleashCacheKey)
	if path == "" {
		path = filepath.Join(mod.Root, cache.DefaultFileName)
	}

	return cache.Open(path)
}

// gatherCoverage either runs the instrumented test suite or loads an
// existing profile from disk, depending on the use-coverage flag.
func gatherCoverage(workDir string, mod gomodule.GoModule) (coverage.Profile, time.Duration, error) {
	if configuration.Get[bool](configuration.UnleashUseCoverageKey) {
		profilePath := configuration.Get[string](configuration.UnleashCoverageProfileKey)
		profile, err := coverage.FromFile(profilePath, mod)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read coverage profile: %w", err)
		}

		return profile, 0, nil
	}

	c := coverage.New(workDir, mod)
	result, err := c.Run()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to gather coverage: %w", err)
	}

	return result.Profile, result.Elapsed, nil
}

// gatherDiff either parses a patch file or calls out to git diff, depending
// on the use-patch-file flag.
func gatherDiff() (diff.Diff, error) {
	if patchFile := configuration.Get[string](configuration.UnleashUsePatchFileKey); patchFile != "" {
		return diff.NewFromPatchFile(patchFile)
	}

	return diff.New()
}

func setFlagsOnCmd(cmd *cobra.Command) error {
	cmd.Flags().SortFlags = false
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		from := []string{".", "_"}
		to := "-"
		for _, sep := range from {
			name = strings.ReplaceAll(name, sep, to)
		}

		return pflag.NormalizedName(name)
	})

	fls := []*flags.Flag{
		{Name: paramDryRun, CfgKey: configuration.UnleashDryRunKey, Shorthand: "d", DefaultV: false, Usage: "find mutations but do not execute tests"},
		{Name: paramBuildTags, CfgKey: configuration.UnleashTagsKey, Shorthand: "t", DefaultV: "", Usage: "a comma-separated list of build tags"},
		{Name: paramOutput, CfgKey: configuration.UnleashOutputKey, Shorthand: "o", DefaultV: "", Usage: "set the output file for machine readable results"},
		{Name: paramOutputStatuses, CfgKey: configuration.UnleashOutputStatusesKey, DefaultV: "", Usage: "filter logged mutants by status, e.g. \"lkt\""},
		{Name: paramIntegrationMode, CfgKey: configuration.UnleashIntegrationMode, Shorthand: "i", DefaultV: false, Usage: "run the complete test suite for each mutation"},
		{Name: paramCoverPkg, CfgKey: configuration.UnleashCoverPkgKey, DefaultV: "", Usage: "value to pass to go test -coverpkg"},
		{Name: paramDiff, CfgKey: configuration.UnleashDiffRef, DefaultV: "", Usage: "only test mutants on lines changed since this git ref"},
		{Name: paramExcludeFiles, CfgKey: configuration.UnleashExcludeFiles, DefaultV: []string{}, Usage: "glob or regex patterns of files to exclude from mutation"},
		{Name: paramUseCoverage, CfgKey: configuration.UnleashUseCoverageKey, DefaultV: false, Usage: "use an existing coverage profile instead of running tests"},
		{Name: paramCoverageProfile, CfgKey: configuration.UnleashCoverageProfileKey, DefaultV: "", Usage: "path to the coverage profile used with --use-coverage"},
		{Name: paramUsePatchFile, CfgKey: configuration.UnleashUsePatchFileKey, DefaultV: "", Usage: "only test mutants on lines touched by this unified diff file"},
		{Name: paramCache, CfgKey: configuration.UnleashCacheKey, DefaultV: "", Usage: "path to the persistent mutant cache"},
		{Name: paramCI, CfgKey: configuration.UnleashCIKey, DefaultV: false, Usage: "force a zero exit code unless a runtime exception occurred"},
		{Name: paramTestTimeBase, CfgKey: configuration.UnleashTestTimeBaseKey, DefaultV: float64(0), Usage: "fixed seconds added to the suspicious-test-time threshold"},
		{Name: paramTestTimeMult, CfgKey: configuration.UnleashTestTimeMultiplierKey, DefaultV: float64(0), Usage: "multiplier of the baseline time for the suspicious-test-time threshold"},
		{Name: paramNameWhitelist, CfgKey: configuration.UnleashNameWhitelistKey, DefaultV: []string{}, Usage: "list of identifiers; accepted but not read by mutant discovery, so no identifier is exempted from mutation"},
		{Name: paramPreMutation, CfgKey: configuration.UnleashPreMutationKey, DefaultV: "", Usage: "shell command run before each mutation is applied; a non-zero exit skips the mutant"},
		{Name: paramPostMutation, CfgKey: configuration.UnleashPostMutationKey, DefaultV: "", Usage: "shell command run after each mutant is rolled back"},
		{Name: paramThresholdEfficacy, CfgKey: configuration.UnleashThresholdEfficacyKey, DefaultV: float64(0), Usage: "threshold for code-efficacy percent"},
		{Name: paramThresholdMCoverage, CfgKey: configuration.UnleashThresholdMCoverageKey, DefaultV: float64(0), Usage: "threshold for mutant-coverage percent"},
		{Name: paramWorkers, CfgKey: configuration.UnleashWorkersKey, DefaultV: 0, Usage: "the number of workers to use in mutation testing"},
		{Name: paramTestCPU, CfgKey: configuration.UnleashTestCPUKey, DefaultV: 0, Usage: "the number of CPUs to allow each test run to use"},
		{Name: paramTimeoutCoefficient, CfgKey: configuration.UnleashTimeoutCoefficientKey, DefaultV: 0, Usage: "the coefficient by which the timeout is increased"},
	}

	for _, f := range fls {
		err := flags.Set(cmd, f)
		if err != nil {
			return err
		}
	}

	return setMutantTypeFlags(cmd)
}

func setMutantTypeFlags(cmd *cobra.Command) error {
	for _, mt := range mutator.Types {
		name := mt.String()
		usage := fmt.Sprintf("enable %q mutants", name)
		param := strings.ReplaceAll(name, "_", "-")
		param = strings.ToLower(param)
		confKey := configuration.MutantTypeEnabledKey(mt)

		err := flags.Set(cmd, &flags.Flag{
			Name:     param,
			CfgKey:   confKey,
			DefaultV: configuration.IsDefaultEnabled(mt),
			Usage:    usage,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
