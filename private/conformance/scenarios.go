package conformance

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gonzojive/runfiles-api/private/layout"
)

const (
	// DataRlocationpath is the runfile every scenario asks the binary for.
	DataRlocationpath = "runfiles_api/test_data.txt"
	// DataContent is the content of the data runfile.
	DataContent = "Test data content"

	dataWorkspace = "runfiles_api"
	dataShortPath = "test_data.txt"
)

// Scenario is one runfiles environment a binary is run under.
type Scenario struct {
	Name        string
	Description string
	// WantSuccess reports whether the binary is expected to find the data.
	WantSuccess bool
	// setup prepares the sandbox and returns the environment to run with.
	setup func(ctx context.Context, sb *sandbox) ([]string, error)
}

// Scenarios returns every scenario in a stable order.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "no_runfiles",
			Description: "no runfiles environment variables or directories are available",
			WantSuccess: false,
			setup: func(context.Context, *sandbox) ([]string, error) {
				return nil, nil
			},
		},
		{
			Name:        "runfiles_dir_env",
			Description: "runfiles are located through RUNFILES_DIR",
			WantSuccess: true,
			setup: func(ctx context.Context, sb *sandbox) ([]string, error) {
				spec, err := sb.dataSpec(filepath.Base(sb.binary))
				if err != nil {
					return nil, err
				}
				dir := filepath.Join(sb.dir, "runfiles")
				if _, err := spec.WriteRunfiles(ctx, dir); err != nil {
					return nil, err
				}
				return []string{"RUNFILES_DIR=" + dir}, nil
			},
		},
		{
			Name:        "runfiles_manifest_env",
			Description: "runfiles are located through RUNFILES_MANIFEST_FILE",
			WantSuccess: true,
			setup: func(ctx context.Context, sb *sandbox) ([]string, error) {
				manifest := filepath.Join(sb.dir, "MANIFEST")
				if err := sb.writeManifest(manifest); err != nil {
					return nil, err
				}
				return []string{"RUNFILES_MANIFEST_FILE=" + manifest}, nil
			},
		},
		{
			Name:        "runfiles_dir_no_manifest",
			Description: "a <binary>.runfiles directory next to the binary is used without a MANIFEST",
			WantSuccess: true,
			setup: func(ctx context.Context, sb *sandbox) ([]string, error) {
				spec, err := sb.dataSpec(filepath.Base(sb.binary))
				if err != nil {
					return nil, err
				}
				if _, err := spec.WriteTree(ctx, filepath.Dir(sb.binary)); err != nil {
					return nil, err
				}
				return nil, nil
			},
		},
		{
			Name:        "runfiles_dir_with_manifest",
			Description: "a <binary>.runfiles/MANIFEST next to the binary is used",
			WantSuccess: true,
			setup: func(ctx context.Context, sb *sandbox) ([]string, error) {
				return nil, sb.writeManifest(filepath.Join(sb.binary+".runfiles", "MANIFEST"))
			},
		},
		{
			Name:        "runfiles_dir_empty_manifest_env",
			Description: "an empty RUNFILES_MANIFEST_FILE falls back to <binary>.runfiles",
			WantSuccess: true,
			setup: func(ctx context.Context, sb *sandbox) ([]string, error) {
				if err := sb.writeManifest(filepath.Join(sb.binary+".runfiles", "MANIFEST")); err != nil {
					return nil, err
				}
				return []string{"RUNFILES_MANIFEST_FILE="}, nil
			},
		},
	}
}

// sandbox is the scratch directory of a single scenario.
type sandbox struct {
	dir    string
	binary string
}

// dataFile writes the data runfile outside of any runfiles tree.
func (sb *sandbox) dataFile() (*layout.File, error) {
	p := filepath.Join(sb.dir, "data", dataShortPath)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(p, []byte(DataContent), 0644); err != nil {
		return nil, err
	}
	return &layout.File{Path: p, ShortPath: dataShortPath}, nil
}

func (sb *sandbox) dataSpec(executableName string) (*layout.Spec, error) {
	f, err := sb.dataFile()
	if err != nil {
		return nil, err
	}
	return &layout.Spec{
		WorkspaceName:  dataWorkspace,
		ExecutableName: executableName,
		Files:          []*layout.File{f},
	}, nil
}

func (sb *sandbox) writeManifest(path string) error {
	spec, err := sb.dataSpec(filepath.Base(sb.binary))
	if err != nil {
		return err
	}
	return spec.WriteManifestFile(path)
}
