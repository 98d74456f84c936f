// Package fixture implements a small runfiles consumer used to validate
// runfiles library integrations in test suites.
//
// The fixture resolves a single rlocationpath, reads the file it points to and
// writes the contents to an output stream. Every failure is fatal to the
// caller; ExitCode maps the returned error to the process exit status.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/bazelbuild/rules_go/go/runfiles"
)

// Exit statuses of the runfiles_user binary.
const (
	ExitSuccess = 0
	ExitUsage   = 1
	ExitFailure = 2
)

// ExampleRlocationpath is shown in the usage message.
const ExampleRlocationpath = "workspace/path/to/file.txt"

var (
	// ErrUsage is returned when the argument count is wrong.
	ErrUsage = errors.New("wrong number of arguments")
	// ErrInit is returned when no runfiles resolver could be created.
	ErrInit = errors.New("failed to locate runfiles")
	// ErrNotFound is returned when an rlocationpath has no runfile.
	ErrNotFound = errors.New("failed to locate runfile")
	// ErrRead is returned when the resolved file cannot be read as text.
	ErrRead = errors.New("failed to read file")
)

// Resolver maps an rlocationpath to a filesystem path.
//
// *runfiles.Runfiles satisfies this interface.
type Resolver interface {
	Rlocation(path string) (string, error)
}

// NewResolverFunc constructs a Resolver.
type NewResolverFunc func() (Resolver, error)

// DefaultResolver creates a resolver from the ambient environment using the
// rules_go runfiles library.
func DefaultResolver(opts ...runfiles.Option) NewResolverFunc {
	return func() (Resolver, error) {
		r, err := runfiles.New(opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// ParseArgs returns the rlocationpath from the positional arguments, which
// must not include the program name.
func ParseArgs(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: got %d, want 1", ErrUsage, len(args))
	}
	return args[0], nil
}

// PrintUsage writes the usage message for program prog to w.
func PrintUsage(w io.Writer, prog string) {
	fmt.Fprintf(w, "Usage: %s <runfile_path>\n", prog)
	fmt.Fprintf(w, "Example: %s %s\n", prog, ExampleRlocationpath)
}

// Run resolves rlocationpath with a resolver obtained from newResolver and
// copies the file contents to stdout. The output is always newline
// terminated.
func Run(rlocationpath string, newResolver NewResolverFunc, stdout io.Writer) error {
	contents, err := Read(rlocationpath, newResolver)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(contents, "\n") {
		contents += "\n"
	}
	if _, err := io.WriteString(stdout, contents); err != nil {
		return fmt.Errorf("error writing contents of %q: %w", rlocationpath, err)
	}
	return nil
}

// Read resolves rlocationpath and returns the file contents.
func Read(rlocationpath string, newResolver NewResolverFunc) (string, error) {
	r, err := newResolver()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInit, err)
	}
	resolved, err := r.Rlocation(rlocationpath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, rlocationpath, err)
	}
	if resolved == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rlocationpath)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRead, resolved, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s: contents are not valid UTF-8", ErrRead, resolved)
	}
	return string(data), nil
}

// ExitCode returns the process exit status for an error returned by
// ParseArgs or Run.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}
