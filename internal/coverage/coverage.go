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

// Package coverage runs the module's test suite with coverage instrumentation
// and parses the resulting profile, so the engine only schedules mutants on
// lines a test can actually reach.
package coverage

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/tools/cover"

	"github.com/gremlor/gremlor/internal/configuration"
	"github.com/gremlor/gremlor/internal/gomodule"
	"github.com/gremlor/gremlor/internal/log"
)

// Result is the outcome of a coverage Run: the parsed Profile and how long
// gathering it took, the latter used as the baseline for the executor's
// timeout and OK_SUSPICIOUS classification.
type Result struct {
	Profile Profile
	Elapsed time.Duration
}

type execContext = func(name string, args ...string) *exec.Cmd

// Coverage gathers and parses a go test coverage profile for a module.
type Coverage struct {
	cmdContext execContext
	workDir    string
	mod        gomodule.GoModule
	fileName   string
}

// New instantiates a Coverage using exec.Command as execContext.
func New(workDir string, mod gomodule.GoModule) Coverage {
	return NewWithCmd(exec.Command, workDir, mod)
}

// NewWithCmd instantiates a Coverage given a custom execContext, used in tests
// to avoid actually spawning go test.
func NewWithCmd(cmdContext execContext, workDir string, mod gomodule.GoModule) Coverage {
	return Coverage{
		cmdContext: cmdContext,
		workDir:    workDir,
		mod:        mod,
		fileName:   "coverage",
	}
}

// Run executes `go mod download` followed by an instrumented `go test` and
// parses the resulting coverage profile.
func (c Coverage) Run() (Result, error) {
	log.Infoln("Gathering coverage data...")

	if err := c.run(c.cmdContext("go", "mod", "download")); err != nil {
		return Result{}, fmt.Errorf("impossible to download dependencies: %w", err)
	}

	start := time.Now()
	if err := c.run(c.testCmd()); err != nil {
		return Result{}, fmt.Errorf("impossible to execute coverage: %w", err)
	}
	elapsed := time.Since(start)

	profile, err := c.getProfile()
	if err != nil {
		return Result{}, fmt.Errorf("an error occurred while generating coverage profile: %w", err)
	}

	return Result{Profile: profile, Elapsed: elapsed}, nil
}

func (c Coverage) testCmd() *exec.Cmd {
	args := []string{"test"}

	if tags := configuration.Get[string](configuration.UnleashTagsKey); tags != "" {
		args = append(args, "-tags", tags)
	}
	if coverPkg := configuration.Get[string](configuration.UnleashCoverPkgKey); coverPkg != "" {
		args = append(args, "-coverpkg", coverPkg)
	}
	args = append(args, "-cover", "-coverprofile", c.filePath(), c.path())

	return c.cmdContext("go", args...)
}

func (c Coverage) path() string {
	if configuration.Get[bool](configuration.UnleashIntegrationMode) {
		return "./..."
	}

	dir := strings.TrimSuffix(c.mod.CallingDir, "/")
	if dir == "" || dir == "." {
		return "./..."
	}

	return "./" + dir + "/..."
}

func (c Coverage) run(cmd *exec.Cmd) error {
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func (c Coverage) getProfile() (Profile, error) {
	cf, err := os.Open(c.filePath())
	if err != nil {
		return nil, err
	}
	defer cf.Close()

	return c.parse(cf)
}

func (c Coverage) filePath() string {
	return fmt.Sprintf("%v/%v", c.workDir, c.fileName)
}

func (c Coverage) parse(data io.Reader) (Profile, error) {
	profiles, err := cover.ParseProfilesFromReader(data)
	if err != nil {
		return nil, err
	}

	result := make(Profile)
	for _, p := range profiles {
		for _, b := range p.Blocks {
			if b.Count == 0 {
				continue
			}
			block := Block{
				StartLine: b.StartLine,
				StartCol:  b.StartCol,
				EndLine:   b.EndLine,
				EndCol:    b.EndCol,
			}
			fn := c.removeModuleFromPath(p.FileName)
			result[fn] = append(result[fn], block)
		}
	}

	return result, nil
}

func (c Coverage) removeModuleFromPath(fileName string) string {
	return strings.ReplaceAll(fileName, c.mod.Name+"/", "")
}

// FromFile parses an existing coverage profile instead of running the test
// suite, the use-coverage alternative to Run.
func FromFile(path string, mod gomodule.GoModule) (Profile, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open coverage profile: %w", err)
	}
	defer f.Close()

	c := Coverage{mod: mod}

	return c.parse(f)
}
