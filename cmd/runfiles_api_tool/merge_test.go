package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/gonzojive/runfiles-api/private/srcmerge"
	"github.com/google/subcommands"
)

func TestMergeExecute(t *testing.T) {
	dir := t.TempDir()
	opts := srcmerge.Options{
		Runfiles: filepath.Join(dir, "runfiles.sh"),
		Src:      filepath.Join(dir, "user.sh"),
		Template: "# RUNFILES_API",
		Output:   filepath.Join(dir, "merged.sh"),
	}
	if err := os.WriteFile(opts.Runfiles, []byte("rlocation() { :; }"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(opts.Src, []byte("# RUNFILES_API\nrlocation x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f := flag.NewFlagSet("merge", flag.ContinueOnError)
	cmd := &mergeCmd{}
	cmd.SetFlags(f)
	if err := f.Parse([]string{
		"--runfiles=" + opts.Runfiles,
		"--src=" + opts.Src,
		"--template=" + opts.Template,
		"--output=" + opts.Output,
	}); err != nil {
		t.Fatal(err)
	}
	if got := cmd.Execute(context.Background(), f); got != subcommands.ExitSuccess {
		t.Fatalf("Execute() = %v, want %v", got, subcommands.ExitSuccess)
	}
	got, err := os.ReadFile(opts.Output)
	if err != nil {
		t.Fatal(err)
	}
	if want := "rlocation() { :; }\nrlocation x\n"; string(got) != want {
		t.Errorf("merged output = %q, want %q", got, want)
	}
}

func TestMergeExecuteFailure(t *testing.T) {
	cmd := &mergeCmd{opts: srcmerge.Options{Template: "@@"}}
	if got := cmd.Execute(context.Background(), flag.NewFlagSet("merge", flag.ContinueOnError)); got != subcommands.ExitFailure {
		t.Errorf("Execute() without paths = %v, want %v", got, subcommands.ExitFailure)
	}
}
