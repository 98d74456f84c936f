// Program runfiles_user locates a runfile by its rlocationpath and prints its
// contents.
//
// It is a fixture for runfiles API test suites:
//
//	runfiles_user workspace/path/to/file.txt
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/gonzojive/runfiles-api/private/fixture"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	// The command line is the rlocationpath alone, so glog is configured
	// without parsing it. Log files would be left behind in whatever sandbox
	// the fixture runs in.
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	rlocationpath, err := fixture.ParseArgs(args[1:])
	if err != nil {
		fixture.PrintUsage(os.Stderr, args[0])
		return fixture.ExitCode(err)
	}
	if err := fixture.Run(rlocationpath, fixture.DefaultResolver(), os.Stdout); err != nil {
		glog.Errorf("%v", err)
		return fixture.ExitCode(err)
	}
	return fixture.ExitSuccess
}
