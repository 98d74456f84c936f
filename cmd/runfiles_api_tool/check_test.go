package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gonzojive/runfiles-api/private/conformance"
	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
)

func TestReport(t *testing.T) {
	results := []*conformance.Result{
		{Scenario: conformance.Scenario{Name: "no_runfiles"}},
		{
			Scenario: conformance.Scenario{Name: "runfiles_dir_env", Description: "uses RUNFILES_DIR"},
			Err:      errors.New("exit code 2, want 0"),
			Output:   "boom",
		},
	}
	var buf bytes.Buffer
	if got := report(&buf, results); got != 1 {
		t.Errorf("report() = %d failures, want 1", got)
	}
	want := "PASS no_runfiles\n" +
		"FAIL runfiles_dir_env: exit code 2, want 0\n" +
		"     uses RUNFILES_DIR\n" +
		"     output:\nboom\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestConfig(t *testing.T) {
	c := &checkCmd{binary: "/bin/true", run: "^runfiles_dir", parallel: 3}
	cfg, err := c.config()
	if err != nil {
		t.Fatalf("config() failed: %v", err)
	}
	if cfg.Binary != "/bin/true" || cfg.Parallelism != 3 {
		t.Errorf("config() = %+v", cfg)
	}
	if cfg.Filter == nil || !cfg.Filter.MatchString("runfiles_dir_env") || cfg.Filter.MatchString("no_runfiles") {
		t.Errorf("config() filter = %v", cfg.Filter)
	}
}

func TestConfigFromRlocationpath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "ws", "test", "runfiles_user")
	if err := os.MkdirAll(filepath.Dir(bin), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bin, nil, 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUNFILES_MANIFEST_FILE", "")
	t.Setenv("RUNFILES_DIR", dir)

	cfg, err := (&checkCmd{binaryRlocationpath: "ws/test/runfiles_user"}).config()
	if err != nil {
		t.Fatalf("config() failed: %v", err)
	}
	if cfg.Binary != bin {
		t.Errorf("config() binary = %q, want %q", cfg.Binary, bin)
	}
}

func TestConfigErrors(t *testing.T) {
	for name, c := range map[string]*checkCmd{
		"no binary":  {},
		"bad filter": {binary: "/bin/true", run: "("},
	} {
		if _, err := c.config(); err == nil {
			t.Errorf("%s: config() succeeded", name)
		}
	}
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash is not available")
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCheckExecute(t *testing.T) {
	ok := writeScript(t, "always_ok.sh", "echo '"+conformance.DataContent+"'\n")
	failing := writeScript(t, "always_fails.sh", "exit 1\n")
	for _, tc := range []struct {
		name string
		cmd  *checkCmd
		want subcommands.ExitStatus
	}{
		{"all pass", &checkCmd{binary: ok, run: "^runfiles_", timeout: time.Minute}, subcommands.ExitSuccess},
		{"no_runfiles finds data", &checkCmd{binary: ok, timeout: time.Minute}, subcommands.ExitFailure},
		{"never finds data", &checkCmd{binary: failing, timeout: time.Minute}, subcommands.ExitFailure},
		{"expected failure only", &checkCmd{binary: failing, run: "^no_runfiles$", timeout: time.Minute}, subcommands.ExitSuccess},
		{"no binary", &checkCmd{}, subcommands.ExitUsageError},
		{"missing binary", &checkCmd{binary: filepath.Join(t.TempDir(), "absent")}, subcommands.ExitFailure},
	} {
		got := tc.cmd.Execute(context.Background(), flag.NewFlagSet("check", flag.ContinueOnError))
		if got != tc.want {
			t.Errorf("%s: Execute() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
