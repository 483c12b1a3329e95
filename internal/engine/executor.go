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

package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gremlor/gremlor/internal/engine/workdir"
	"github.com/gremlor/gremlor/internal/engine/workerpool"
	"github.com/gremlor/gremlor/internal/execution"
	"github.com/gremlor/gremlor/internal/log"
	"github.com/gremlor/gremlor/internal/mutator"
	"github.com/gremlor/gremlor/internal/report"

	"github.com/gremlor/gremlor/internal/configuration"
	"github.com/gremlor/gremlor/internal/gomodule"
)

// DefaultTimeoutCoefficient is the default multiplier for the timeout length
// of each test run.
const DefaultTimeoutCoefficient = 3

// ExecutorDealer is the initializer for new workerpool.Executor.
type ExecutorDealer interface {
	NewExecutor(mut mutator.Mutator, outCh chan<- mutator.Mutator, fatal *FatalRecorder, wg *sync.WaitGroup) workerpool.Executor
}

// FatalRecorder captures the first run-terminating error raised by any
// mutantExecutor, such as execution.ErrInvariant. Mutants run concurrently
// across workers, so the first one to fail wins; later ones are discarded
// rather than masking the original cause.
type FatalRecorder struct {
	mu  sync.Mutex
	err error
}

func (f *FatalRecorder) record(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.err = err
	}
}

// Err returns the first fatal error recorded, or nil if none occurred.
func (f *FatalRecorder) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

// MutantExecutorDealer is a ExecutorDealer for the initialisation of a mutantExecutor.
//
// By default, it uses exec.CommandContext to perform the tests on the source
// code. This can be overridden with WithExecContext, for example in tests.
type MutantExecutorDealer struct {
	wdDealer          workdir.Dealer
	execContext       execContext
	mod               gomodule.GoModule
	buildTags         string
	testExecutionTime time.Duration
	baselineElapsed   time.Duration
	testTimeBase      time.Duration
	testTimeMult      float64
	dryRun            bool
	integrationMode   bool
	testCPU           int
	preMutation       string
	postMutation      string
}

// ExecutorDealerOption is the defining option for the initialisation of a ExecutorDealer.
type ExecutorDealerOption func(j MutantExecutorDealer) MutantExecutorDealer

// WithExecContext overrides the default exec.Command with a custom executor.
func WithExecContext(c execContext) ExecutorDealerOption {
	return func(m MutantExecutorDealer) MutantExecutorDealer {
		m.execContext = c

		return m
	}
}

// NewExecutorDealer initialises a MutantExecutorDealer.
func NewExecutorDealer(mod gomodule.GoModule, wdd workdir.Dealer, elapsed time.Duration, opts ...ExecutorDealerOption) *MutantExecutorDealer {
	buildTags := configuration.Get[string](configuration.UnleashTagsKey)
	dryRun := configuration.Get[bool](configuration.UnleashDryRunKey)
	integrationMode := configuration.Get[bool](configuration.UnleashIntegrationMode)
	testCPU := configuration.Get[int](configuration.UnleashTestCPUKey)
	tCoefficient := configuration.Get[int](configuration.UnleashTimeoutCoefficientKey)

	coefficient := DefaultTimeoutCoefficient
	if tCoefficient != 0 {
		coefficient = tCoefficient
	}

	if testCPU != 0 && integrationMode {
		testCPU /= 2
	}

	testTimeBaseSecs := configuration.Get[float64](configuration.UnleashTestTimeBaseKey)
	testTimeMult := configuration.Get[float64](configuration.UnleashTestTimeMultiplierKey)
	preMutation := configuration.Get[string](configuration.UnleashPreMutationKey)
	postMutation := configuration.Get[string](configuration.UnleashPostMutationKey)

	jd := MutantExecutorDealer{
		mod:               mod,
		wdDealer:          wdd,
		buildTags:         buildTags,
		dryRun:            dryRun,
		integrationMode:   integrationMode,
		testCPU:           testCPU,
		testExecutionTime: elapsed * time.Duration(coefficient),
		baselineElapsed:   elapsed,
		testTimeBase:      time.Duration(testTimeBaseSecs * float64(time.Second)),
		testTimeMult:      testTimeMult,
		preMutation:       preMutation,
		postMutation:      postMutation,
		execContext:       exec.CommandContext,
	}

	for _, opt := range opts {
		jd = opt(jd)
	}

	return &jd
}

// NewExecutor returns a new workerpool.Executor for the given mutator.Mutator.
// It gets an output channel of mutator.Mutator and a sync.WaitGroup. The channel
// will stream the results of the executor, and the wait group will be done when the
// executor is complete.
func (m MutantExecutorDealer) NewExecutor(mut mutator.Mutator, outCh chan<- mutator.Mutator, fatal *FatalRecorder, wg *sync.WaitGroup) workerpool.Executor {
	mj := mutantExecutor{
		mutant:            mut,
		outCh:             outCh,
		fatal:             fatal,
		wg:                wg,
		wdDealer:          m.wdDealer,
		module:            m.mod,
		dryRun:            m.dryRun,
		integrationMode:   m.integrationMode,
		buildTags:         m.buildTags,
		execContext:       m.execContext,
		testCPU:           m.testCPU,
		testExecutionTime: m.testExecutionTime,
		baselineElapsed:   m.baselineElapsed,
		testTimeBase:      m.testTimeBase,
		testTimeMult:      m.testTimeMult,
		preMutation:       m.preMutation,
		postMutation:      m.postMutation,
	}

	return &mj
}

type execContext = func(ctx context.Context, name string, args ...string) *exec.Cmd

type mutantExecutor struct {
	mutant            mutator.Mutator
	wdDealer          workdir.Dealer
	outCh             chan<- mutator.Mutator
	fatal             *FatalRecorder
	wg                *sync.WaitGroup
	execContext       execContext
	module            gomodule.GoModule
	buildTags         string
	testExecutionTime time.Duration
	baselineElapsed   time.Duration
	testTimeBase      time.Duration
	testTimeMult      float64
	dryRun            bool
	integrationMode   bool
	testCPU           int
	preMutation       string
	postMutation      string
}

// Start is the implementation of the workerpool.Executor definition and is the
// method responsible for performing the actual mutation testing.
// The executor runs on its mutator.Mutator.
// If it is RUNNABLE, and it is not in dry-run mode, it will apply the mutation,
// run the tests and mark the TokenMutator as either KILLED or LIVED depending
// on the result. If the tests pass, it means the TokenMutator survived, so it
// will be LIVED, if the tests fail, the TokenMutator will be KILLED.
// The timeout of the test is managed outside the run of the test, using
// a context with timeout. This is done because the Go test command doesn't
// make it easy to distinguish failures from timeouts.
func (m *mutantExecutor) Start(w *workerpool.Worker) {
	defer m.wg.Done()
	workerName := fmt.Sprintf("%s-%d", w.Name, w.ID)
	rootDir, err := m.wdDealer.Get(workerName)
	if err != nil {
		panic("error, this is temporary")
	}

	workingDir := filepath.Join(rootDir, m.module.CallingDir)
	m.mutant.SetWorkdir(workingDir)

	if m.mutant.Status() != mutator.Runnable || m.dryRun {
		m.outCh <- m.mutant
		report.Mutant(m.mutant)

		return
	}

	if m.runPreMutationHook(workingDir) {
		m.mutant.SetStatus(mutator.Skipped)
		m.outCh <- m.mutant
		report.Mutant(m.mutant)

		return
	}

	if err := m.mutant.Apply(); err != nil {
		if errors.Is(err, execution.ErrInvariant) {
			log.Errorf("invariant violated at %s - %v\n", m.mutant.Position(), err)
			m.fatal.record(err)

			return
		}
		log.Errorf("failed to apply mutation at %s - %s\n\t%v", m.mutant.Position(), m.mutant.Status(), err)

		return
	}

	m.mutant.SetStatus(m.runTests(m.mutant.Pkg()))

	if err := m.mutant.Rollback(); err != nil {
		// What should we do now?
		log.Errorf("failed to restore mutation at %s - %s\n\t%v", m.mutant.Position(), m.mutant.Status(), err)
	}

	m.runPostMutationHook(workingDir)

	m.outCh <- m.mutant
	report.Mutant(m.mutant)
}

// runPreMutationHook runs the configured pre-mutation shell command, if any,
// in dir. A non-zero exit is the hook's way of telling gremlor to skip the
// mutant instead of running it, mirroring a raised SkipException in the
// config hooks this was ported from. It reports whether the mutant should
// be skipped.
func (m *mutantExecutor) runPreMutationHook(dir string) bool {
	if m.preMutation == "" {
		return false
	}

	if out, err := m.runHookCommand(m.preMutation, dir); err != nil {
		log.Errorf("%v: pre-mutation hook failed at %s: %v\n%s", execution.ErrSkip, m.mutant.Position(), err, out)

		return true
	}

	return false
}

// runPostMutationHook runs the configured post-mutation shell command, if
// any, in dir, after the mutant has been rolled back. Its output is purely
// informational, so a failure is logged but never changes the mutant's
// status.
func (m *mutantExecutor) runPostMutationHook(dir string) {
	if m.postMutation == "" {
		return
	}

	if out, err := m.runHookCommand(m.postMutation, dir); err != nil {
		log.Errorf("post-mutation hook failed at %s: %v\n%s", m.mutant.Position(), err, out)
	}
}

func (m *mutantExecutor) runHookCommand(command, dir string) (string, error) {
	cmd := m.execContext(context.Background(), "sh", "-c", command)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	result := strings.TrimSpace(string(out))
	if result != "" {
		log.Infof("%s\n", result)
	}

	return result, err
}

func (m *mutantExecutor) runTests(pkg string) mutator.Status {
	ctx, cancel := context.WithTimeout(context.Background(), m.testExecutionTime)
	defer cancel()

	cmd := m.execContext(ctx, "go", m.getTestArgs(pkg)...)
	cmd.Dir = m.mutant.Workdir()

	start := time.Now()
	rel, err := run(cmd)
	elapsed := time.Since(start)
	defer rel()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return mutator.TimedOut
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return getTestFailedStatus(exitErr.ExitCode())
	}

	if m.isSuspicious(elapsed) {
		return mutator.Suspicious
	}

	return mutator.Lived
}

// isSuspicious reports whether a surviving mutant's test run took markedly
// longer than the unmutated baseline, a symptom of a near-infinite loop or
// a test asserting on timing instead of behavior.
func (m *mutantExecutor) isSuspicious(elapsed time.Duration) bool {
	if m.baselineElapsed == 0 || m.testTimeMult <= 0 {
		return false
	}

	threshold := m.testTimeBase + time.Duration(float64(m.baselineElapsed)*m.testTimeMult)

	return elapsed > threshold
}

func (m *mutantExecutor) getTestArgs(pkg string) []string {
	args := []string{"test"}
	if m.buildTags != "" {
		args = append(args, "-tags", m.buildTags)
	}
	// Here we add some seconds to the timeout to be sure it's gremlor that catches the test
	// timeout and not the test itself. The timeout on the test prevents the test.* processes
	// from hanging forever.
	args = append(args, "-timeout", (2*time.Second + m.testExecutionTime).String())
	args = append(args, "-count=1")
	args = append(args, "-failfast")

	if m.testCPU != 0 {
		args = append(args, fmt.Sprintf("-cpu %d", m.testCPU))
	}

	path := pkg
	if m.integrationMode {
		path = "./..."
		if m.module.CallingDir != "." {
			path = fmt.Sprintf("./%s/...", m.module.CallingDir)
		}
	}
	args = append(args, path)

	return args
}

func run(cmd *exec.Cmd) (func(), error) {
	if err := cmd.Run(); err != nil {

		return func() {}, err
	}

	return func() {
		err := cmd.Process.Release()
		if err != nil {
			_ = cmd.Process.Kill()
		}
	}, nil
}

func getTestFailedStatus(exitCode int) mutator.Status {
	switch exitCode {
	case 1:
		return mutator.Killed
	case 2:
		return mutator.NotViable
	default:
		return mutator.Lived
	}
}
