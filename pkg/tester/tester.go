package tester

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/builder"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/packages"
	"github.com/djcass44/bake-your-own/pkg/prefix"
	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/go-logr/logr"
)

const defaultInterpreter = "python"

type Options struct {
	Recipe v1.Recipe
	Lock   *lockfile.Lock
	Target recipe.Target
	// RecipeDir is where declared test support files
	// (e.g. a coverage configuration) are staged from
	RecipeDir string
	WorkDir   string
	// Artifact is the built package archive under test
	Artifact string
	Keepers  map[v1.PackageType]packages.PackageManager
	Dl       *downloader.Downloader
	// Interpreter overrides the interpreter used for
	// smoke imports
	Interpreter string
}

type Tester struct {
	opts Options
}

func New(opts Options) (*Tester, error) {
	if opts.Lock == nil {
		return nil, fmt.Errorf("a lockfile is required to test")
	}
	if opts.Dl == nil {
		return nil, fmt.Errorf("a downloader is required to test")
	}
	if err := opts.Lock.Validate(opts.Recipe.Spec); err != nil {
		return nil, fmt.Errorf("validating lock: %w", err)
	}
	return &Tester{opts: opts}, nil
}

// Test assembles a test prefix containing the run and
// test requirements plus the built artifact, stages
// support files, then runs smoke imports and the
// declared test commands.
func (t *Tester) Test(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx)
	spec := t.opts.Recipe.Spec

	prefixDir := filepath.Join(t.opts.WorkDir, "prefix")
	if err := os.MkdirAll(prefixDir, 0755); err != nil {
		return err
	}
	pfx := prefix.New(prefixDir)

	log.Info("assembling test prefix", "path", prefixDir)
	if err := t.installLocked(ctx, pfx); err != nil {
		return err
	}
	if err := t.installArtifact(ctx, pfx); err != nil {
		return err
	}
	// every declared test dependency must have made it
	// into the prefix, otherwise the test run would die
	// with a missing module
	if err := t.checkRequires(ctx, pfx); err != nil {
		return err
	}

	workDir, err := t.stageFiles(ctx)
	if err != nil {
		return err
	}

	runner := &builder.Runner{
		Dir: workDir,
		Env: []string{
			"PREFIX=" + prefixDir,
			"PKG_NAME=" + spec.Package.Name,
			"PKG_VERSION=" + spec.Package.Version,
			"PATH=" + filepath.Join(prefixDir, "bin") + string(os.PathListSeparator) + os.Getenv("PATH"),
		},
	}

	interp := t.opts.Interpreter
	if interp == "" {
		interp = defaultInterpreter
	}
	for _, name := range spec.Test.Imports {
		log.Info("checking import", "import", name)
		if err := runner.Run(ctx, []string{fmt.Sprintf("%s -c 'import %s'", interp, name)}); err != nil {
			return fmt.Errorf("smoke import %s: %w", name, err)
		}
	}

	if len(spec.Test.Commands) == 0 {
		log.Info("recipe declares no test commands")
		return nil
	}
	return runner.Run(ctx, spec.Test.Commands)
}

func (t *Tester) installLocked(ctx context.Context, pfx *prefix.Prefix) error {
	grouped := map[v1.PackageType][]lockfile.Package{}
	for _, k := range t.opts.Lock.SortedKeys() {
		p := t.opts.Lock.Packages[k]
		if p.Type == v1.PackageFile {
			continue
		}
		p.Name = k
		grouped[p.Type] = append(grouped[p.Type], p)
	}
	for pt, pkgs := range grouped {
		keeper, ok := t.opts.Keepers[pt]
		if !ok {
			return fmt.Errorf("unknown package type: %s", pt)
		}
		if err := pfx.Install(ctx, keeper, t.opts.Dl, pkgs); err != nil {
			return err
		}
	}
	return nil
}

// installArtifact unpacks the built package into the
// test prefix the same way a keeper would.
func (t *Tester) installArtifact(ctx context.Context, pfx *prefix.Prefix) error {
	log := logr.FromContextOrDiscard(ctx)
	if t.opts.Artifact == "" {
		return fmt.Errorf("an artifact is required to test")
	}
	log.V(1).Info("installing artifact", "path", t.opts.Artifact)

	keeper, ok := t.opts.Keepers[v1.PackageConda]
	if !ok {
		return fmt.Errorf("no keeper available to unpack the artifact")
	}
	return keeper.Unpack(ctx, t.opts.Artifact, pfx.FS())
}

// checkRequires verifies each test-only dependency was
// recorded in the prefix.
func (t *Tester) checkRequires(ctx context.Context, pfx *prefix.Prefix) error {
	requires, err := t.opts.Target.Select(t.opts.Recipe.Spec.Test.Requires)
	if err != nil {
		return err
	}
	if len(requires) == 0 {
		return nil
	}
	record, err := pfx.FS().ReadFile(prefix.RecordFile)
	if err != nil {
		return fmt.Errorf("reading package record: %w", err)
	}
	for _, r := range requires {
		if !containsPackage(string(record), r.Name) {
			return fmt.Errorf("test dependency missing from prefix: %s", r.Name)
		}
	}
	return nil
}

// stageFiles copies declared test support files from the
// recipe directory into a scratch working directory.
func (t *Tester) stageFiles(ctx context.Context) (string, error) {
	log := logr.FromContextOrDiscard(ctx)

	workDir := filepath.Join(t.opts.WorkDir, "test")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", err
	}
	for _, f := range t.opts.Recipe.Spec.Test.Files {
		src := filepath.Join(t.opts.RecipeDir, f)
		data, err := os.ReadFile(src)
		if err != nil {
			return "", fmt.Errorf("staging test file %s: %w", f, err)
		}
		dst := filepath.Join(workDir, f)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return "", err
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return "", err
		}
		log.V(1).Info("staged test file", "file", f)
	}
	return workDir, nil
}
