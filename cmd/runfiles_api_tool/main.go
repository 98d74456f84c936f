// Program runfiles_api_tool holds the helpers used to test runfiles API
// implementations: a conformance checker for runfiles_user style binaries, a
// runfiles layout writer and a source merger that embeds a runfiles library
// into a script.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&checkCmd{}, "")
	subcommands.Register(&layoutCmd{}, "")
	subcommands.Register(&mergeCmd{}, "")

	flag.Set("logtostderr", "true")
	flag.Parse()
	status := subcommands.Execute(context.Background())
	glog.Flush()
	os.Exit(int(status))
}
