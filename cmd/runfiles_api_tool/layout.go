package main

import (
	"context"
	"errors"
	"flag"

	"github.com/golang/glog"
	"github.com/gonzojive/runfiles-api/private/layout"
	"github.com/google/subcommands"
)

type layoutCmd struct {
	spec        string
	tree        string
	runfilesDir string
	manifest    string
}

func (*layoutCmd) Name() string { return "layout" }

func (*layoutCmd) Synopsis() string {
	return "materializes the runfiles of an executable from a JSON spec"
}

func (*layoutCmd) Usage() string {
	return `layout --spec=<json> [--tree=<dir>] [--runfiles_dir=<dir>] [--manifest=<file>]

The spec has the fields workspace_name, executable, executable_name, files and
repo_mapping_manifest; each file has a path and a short_path.
`
}

func (c *layoutCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.spec, "spec", "", "Path to the layout spec JSON.")
	f.StringVar(&c.tree, "tree", "", "Directory to write the executable and its <name>.runfiles directory to.")
	f.StringVar(&c.runfilesDir, "runfiles_dir", "", "Directory to write the runfiles to, usable as RUNFILES_DIR.")
	f.StringVar(&c.manifest, "manifest", "", "File to write a runfiles manifest to, usable as RUNFILES_MANIFEST_FILE.")
}

func (c *layoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.execute(ctx); err != nil {
		glog.Errorf("error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *layoutCmd) execute(ctx context.Context) error {
	if c.spec == "" {
		return errors.New("must specify valid --spec path")
	}
	if c.tree == "" && c.runfilesDir == "" && c.manifest == "" {
		return errors.New("must specify at least one of --tree, --runfiles_dir and --manifest")
	}
	spec, err := layout.ReadSpec(c.spec)
	if err != nil {
		return err
	}
	if c.tree != "" {
		entries, err := spec.WriteTree(ctx, c.tree)
		if err != nil {
			return err
		}
		glog.V(1).Infof("wrote %d entries to %s", len(entries), c.tree)
	}
	if c.runfilesDir != "" {
		entries, err := spec.WriteRunfiles(ctx, c.runfilesDir)
		if err != nil {
			return err
		}
		glog.V(1).Infof("wrote %d runfiles to %s", len(entries), c.runfilesDir)
	}
	if c.manifest != "" {
		if err := spec.WriteManifestFile(c.manifest); err != nil {
			return err
		}
	}
	return nil
}
