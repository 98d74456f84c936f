// Package conformance checks that a binary resolves runfiles correctly under
// every runfiles environment layout Bazel produces.
//
// The binary under test must accept a single rlocationpath argument and print
// the contents of the runfile it resolves to, like cmd/runfiles_user does.
// Each scenario gets its own sandbox directory holding a private copy of the
// binary, so layouts next to the binary do not interfere with each other.
package conformance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// waitDelay bounds how long a run waits for the output pipes after the
// binary exits or is killed.
var waitDelay = 5 * time.Second

// Config controls a conformance run.
type Config struct {
	// Binary is the path of the binary under test.
	Binary string

	// Env is added to the environment of every scenario. Scenarios otherwise
	// run with an empty environment.
	Env []string

	// Filter selects scenarios by name. nil selects all of them.
	Filter *regexp.Regexp

	// TempDir is where sandboxes are created. Defaults to os.TempDir().
	TempDir string

	// Parallelism bounds the number of scenarios run at once. Values below
	// one mean no limit.
	Parallelism int

	// Timeout bounds each execution of the binary. Zero means no timeout.
	Timeout time.Duration

	// Keep leaves sandboxes on disk after the run.
	Keep bool
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario Scenario
	// Sandbox is the scenario directory; it is removed unless Config.Keep.
	Sandbox  string
	ExitCode int
	// Env is the environment the scenario added for the binary.
	Env []string
	// Output is the combined stdout and stderr of the binary.
	Output string
	// Err describes why the scenario failed and is nil when it passed.
	Err error
}

// Passed reports whether the binary behaved as the scenario expects.
func (r *Result) Passed() bool { return r.Err == nil }

// Run runs the selected scenarios against cfg.Binary and returns their
// results sorted by scenario name. The returned error is only set when the
// run itself could not be carried out; scenario failures are reported in the
// results.
func Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if cfg.Binary == "" {
		return nil, errors.New("no binary to check")
	}
	binary, err := filepath.Abs(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("error resolving binary %q: %w", cfg.Binary, err)
	}
	if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("error calling os.Stat on binary: %w", err)
	}
	var selected []Scenario
	for _, s := range Scenarios() {
		if cfg.Filter == nil || cfg.Filter.MatchString(s.Name) {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no scenario matches %v", cfg.Filter)
	}

	var results []*Result
	lock := sync.Mutex{}
	push := func(r *Result) {
		lock.Lock()
		defer lock.Unlock()
		results = append(results, r)
	}

	eg, ctx := errgroup.WithContext(ctx)
	if cfg.Parallelism > 0 {
		eg.SetLimit(cfg.Parallelism)
	}
	for _, s := range selected {
		eg.Go(func() error {
			r, err := runScenario(ctx, cfg, binary, s)
			if err != nil {
				return fmt.Errorf("error setting up scenario %s: %w", s.Name, err)
			}
			push(r)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Scenario.Name < results[j].Scenario.Name
	})
	return results, nil
}

func runScenario(ctx context.Context, cfg Config, binary string, s Scenario) (*Result, error) {
	dir, err := os.MkdirTemp(cfg.TempDir, "runfiles_api_"+s.Name+"_")
	if err != nil {
		return nil, err
	}
	if !cfg.Keep {
		defer os.RemoveAll(dir)
	}

	sb := &sandbox{
		dir:    dir,
		binary: filepath.Join(dir, "binary", filepath.Base(binary)),
	}
	if err := copyExecutable(binary, sb.binary); err != nil {
		return nil, fmt.Errorf("error copying binary: %w", err)
	}
	env, err := s.setup(ctx, sb)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	args := append(interpreterArgs(sb.binary), DataRlocationpath)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	// A nil Env would inherit the harness environment.
	cmd.Env = append(append([]string{}, cfg.Env...), env...)
	// A child left running by a script would otherwise keep the output pipe,
	// and so Run, open past the timeout.
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	glog.V(1).Infof("scenario %s: running %q with env %q", s.Name, args, cmd.Env)
	runErr := cmd.Run()
	result := &Result{
		Scenario: s,
		Sandbox:  dir,
		Env:      env,
		Output:   out.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() != nil {
		result.Err = fmt.Errorf("binary did not finish: %w", ctx.Err())
		return result, nil
	}
	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) && !errors.Is(runErr, exec.ErrWaitDelay) {
		return nil, fmt.Errorf("error running binary: %w", runErr)
	}
	result.Err = check(s, result)
	return result, nil
}

// check compares the outcome of a run with what the scenario expects.
func check(s Scenario, r *Result) error {
	switch {
	case s.WantSuccess && r.ExitCode != 0:
		return fmt.Errorf("exit code %d, want 0", r.ExitCode)
	case s.WantSuccess && !strings.Contains(r.Output, DataContent):
		return fmt.Errorf("output does not contain %q", DataContent)
	case !s.WantSuccess && r.ExitCode == 0:
		return errors.New("exit code 0, want a failure")
	}
	return nil
}

// interpreterArgs returns the command line prefix that executes binary.
// Scripts are run through their interpreter so they need not be executable
// on every platform.
func interpreterArgs(binary string) []string {
	switch {
	case strings.HasSuffix(binary, ".py"):
		return []string{lookPath("python3", "/usr/bin/python3"), "-B", "-s", "-P", binary}
	case strings.HasSuffix(binary, ".sh"):
		return []string{lookPath("bash", "/bin/bash"), binary}
	}
	return []string{binary}
}

func lookPath(name, fallback string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return fallback
}

func copyExecutable(src, dst string) error {
	contents, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, contents, 0755); err != nil {
		return err
	}
	return os.Chmod(dst, 0755)
}
