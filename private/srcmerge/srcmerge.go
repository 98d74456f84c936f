// Package srcmerge embeds a runfiles library source into another source file
// by replacing a template marker.
package srcmerge

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Options names the files of a merge.
type Options struct {
	// Runfiles is the runfiles library source to embed.
	Runfiles string
	// Src is the file containing Template.
	Src string
	// Template is the marker replaced by the contents of Runfiles.
	Template string
	// Output is where the merged source is written.
	Output string
}

// Merge replaces every occurrence of template in src with runfiles.
func Merge(src, template, runfiles string) (string, error) {
	if template == "" {
		return "", errors.New("template must not be empty")
	}
	return strings.ReplaceAll(src, template, runfiles), nil
}

// MergeFiles performs Merge on the files named by opts.
func MergeFiles(opts Options) error {
	for _, f := range []struct{ flag, value string }{
		{"runfiles", opts.Runfiles},
		{"src", opts.Src},
		{"output", opts.Output},
	} {
		if f.value == "" {
			return fmt.Errorf("must specify valid --%s path", f.flag)
		}
	}
	runfiles, err := os.ReadFile(opts.Runfiles)
	if err != nil {
		return fmt.Errorf("error reading runfiles source: %w", err)
	}
	src, err := os.ReadFile(opts.Src)
	if err != nil {
		return fmt.Errorf("error reading source: %w", err)
	}
	merged, err := Merge(string(src), opts.Template, string(runfiles))
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Output, []byte(merged), 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", opts.Output, err)
	}
	return nil
}
