package main

import (
	"context"
	"flag"

	"github.com/golang/glog"
	"github.com/gonzojive/runfiles-api/private/srcmerge"
	"github.com/google/subcommands"
)

type mergeCmd struct {
	opts srcmerge.Options
}

func (*mergeCmd) Name() string { return "merge" }

func (*mergeCmd) Synopsis() string {
	return "embeds a runfiles library source into another source file"
}

func (*mergeCmd) Usage() string {
	return "merge --runfiles=<file> --src=<file> --template=<marker> --output=<file>\n"
}

func (c *mergeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.opts.Runfiles, "runfiles", "", "The runfiles source file.")
	f.StringVar(&c.opts.Src, "src", "", "The source file to embed the runfiles source into.")
	f.StringVar(&c.opts.Template, "template", "", "The text in --src to replace with the runfiles source.")
	f.StringVar(&c.opts.Output, "output", "", "The output file.")
}

func (c *mergeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := srcmerge.MergeFiles(c.opts); err != nil {
		glog.Errorf("error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
