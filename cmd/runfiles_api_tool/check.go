package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/bazelbuild/rules_go/go/runfiles"
	"github.com/golang/glog"
	"github.com/gonzojive/runfiles-api/private/conformance"
	"github.com/google/subcommands"
)

type checkCmd struct {
	binary              string
	binaryRlocationpath string
	run                 string
	parallel            int
	timeout             time.Duration
	keep                bool
}

func (*checkCmd) Name() string { return "check" }

func (*checkCmd) Synopsis() string {
	return "runs a runfiles_user style binary under every runfiles layout"
}

func (*checkCmd) Usage() string {
	return `check [flags]

The binary must accept a single rlocationpath argument and print the contents
of the runfile. It is taken from --binary, or resolved as a runfile from
--binary_rlocationpath (default $RUNFILES_BINARY).
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.binary, "binary", "", "Path of the binary under test.")
	f.StringVar(&c.binaryRlocationpath, "binary_rlocationpath", os.Getenv("RUNFILES_BINARY"), "Rlocationpath of the binary under test.")
	f.StringVar(&c.run, "run", "", "Only run scenarios whose name matches this regular expression.")
	f.IntVar(&c.parallel, "parallel", 0, "Maximum number of scenarios run at once; 0 means no limit.")
	f.DurationVar(&c.timeout, "timeout", time.Minute, "Timeout of a single binary execution.")
	f.BoolVar(&c.keep, "keep", false, "Keep scenario sandboxes on disk.")
}

func (c *checkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.config()
	if err != nil {
		glog.Errorf("error: %v", err)
		return subcommands.ExitUsageError
	}
	results, err := conformance.Run(ctx, cfg)
	if err != nil {
		glog.Errorf("error: %v", err)
		return subcommands.ExitFailure
	}
	if failed := report(os.Stdout, results); failed > 0 {
		glog.Errorf("%d of %d scenarios failed", failed, len(results))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *checkCmd) config() (conformance.Config, error) {
	cfg := conformance.Config{
		Binary:      c.binary,
		Parallelism: c.parallel,
		Timeout:     c.timeout,
		Keep:        c.keep,
	}
	if c.run != "" {
		re, err := regexp.Compile(c.run)
		if err != nil {
			return cfg, fmt.Errorf("invalid --run: %w", err)
		}
		cfg.Filter = re
	}
	if cfg.Binary != "" {
		return cfg, nil
	}
	if c.binaryRlocationpath == "" {
		return cfg, errors.New("must specify --binary or --binary_rlocationpath")
	}
	p, err := runfiles.Rlocation(c.binaryRlocationpath)
	if err != nil {
		return cfg, fmt.Errorf("could not locate binary %q: %w", c.binaryRlocationpath, err)
	}
	cfg.Binary = p
	return cfg, nil
}

// report prints one line per result and returns the number of failures.
func report(w io.Writer, results []*conformance.Result) int {
	failed := 0
	for _, r := range results {
		if r.Passed() {
			fmt.Fprintf(w, "PASS %s\n", r.Scenario.Name)
			continue
		}
		failed++
		fmt.Fprintf(w, "FAIL %s: %v\n", r.Scenario.Name, r.Err)
		fmt.Fprintf(w, "     %s\n", r.Scenario.Description)
		if r.Output != "" {
			fmt.Fprintf(w, "     output:\n%s\n", r.Output)
		}
	}
	return failed
}
