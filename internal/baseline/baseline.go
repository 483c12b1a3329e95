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

// Package baseline measures how long the unmutated test suite takes to run,
// so no mutant is ever scheduled before it's known the suite passes clean.
package baseline

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/gremlor/gremlor/internal/execution"
	"github.com/gremlor/gremlor/internal/log"
)

// Runner executes a command and returns its combined output, used so tests
// can substitute a fake instead of spawning a real go test run.
type Runner func(ctx context.Context, dir string) ([]byte, error)

// CommandRunner runs `go test ./...` in dir using exec.CommandContext.
func CommandRunner(ctx context.Context, dir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "go", "test", "./...")
	cmd.Dir = dir

	return cmd.CombinedOutput()
}

// Measure runs the unmutated test suite once via runner and returns how long
// it took. A non-zero exit from the suite is a fatal execution.ErrBaseline,
// since mutation testing is meaningless against a suite that doesn't pass.
func Measure(ctx context.Context, dir string, runner Runner) (time.Duration, error) {
	log.Infoln("Running baseline test suite...")

	start := time.Now()
	out, err := runner(ctx, dir)
	elapsed := time.Since(start)

	if err != nil {
		log.Errorf("baseline test suite failed:\n%s\n", out)

		return 0, fmt.Errorf("%w: %v", execution.ErrBaseline, err)
	}

	log.Infof("Baseline established in %s\n", elapsed)

	return elapsed, nil
}
