package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	cbev1 "github.com/Snakdy/container-build-engine/pkg/api/v1"
	"github.com/Snakdy/container-build-engine/pkg/pipelines"
	"github.com/djcass44/bake-your-own/internal/statements"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/archiveutil"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/packages"
	"github.com/djcass44/bake-your-own/pkg/prefix"
	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

type Options struct {
	Recipe v1.Recipe
	Lock   *lockfile.Lock
	Target recipe.Target
	// RecipeDir is the directory containing the recipe
	// file, exposed to scripts as RECIPE_DIR
	RecipeDir string
	// WorkDir is where the source tree and build prefix
	// are assembled
	WorkDir string
	Keepers map[v1.PackageType]packages.PackageManager
	Dl      *downloader.Downloader
}

type Result struct {
	ID string
	// Files is the installed file set the build script
	// recorded, relative to the prefix
	Files []string
	// ArchivePath is the exported artifact tarball
	ArchivePath string
	// Fingerprint identifies the realized prefix tree
	Fingerprint string
	Prefix *prefix.Prefix
}

type Builder struct {
	opts Options
}

func New(opts Options) (*Builder, error) {
	if opts.Lock == nil {
		return nil, fmt.Errorf("a lockfile is required to build")
	}
	if opts.Dl == nil {
		return nil, fmt.Errorf("a downloader is required to build")
	}
	if err := opts.Lock.Validate(opts.Recipe.Spec); err != nil {
		return nil, fmt.Errorf("validating lock: %w", err)
	}
	return &Builder{opts: opts}, nil
}

// Build runs the whole build phase: assemble the build
// prefix from the lock, fetch and unpack the source, run
// the build script, then collect the recorded files into
// an artifact.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	log := logr.FromContextOrDiscard(ctx)
	spec := b.opts.Recipe.Spec

	prefixDir := filepath.Join(b.opts.WorkDir, "prefix")
	if err := os.MkdirAll(prefixDir, 0755); err != nil {
		return nil, err
	}
	pfx := prefix.New(prefixDir)

	log.Info("assembling build prefix", "path", prefixDir)
	if err := b.installLocked(ctx, pfx); err != nil {
		return nil, err
	}

	srcDir, err := b.unpackSource(ctx)
	if err != nil {
		return nil, err
	}

	script := spec.Build.Script
	if len(script) == 0 {
		script = []string{"python setup.py install --single-version-externally-managed --record=" + defaultRecord}
	}
	runner := &Runner{
		Dir: srcDir,
		Env: []string{
			"PREFIX=" + prefixDir,
			"SRC_DIR=" + srcDir,
			"RECIPE_DIR=" + b.opts.RecipeDir,
			"PKG_NAME=" + spec.Package.Name,
			"PKG_VERSION=" + spec.Package.Version,
			fmt.Sprintf("PKG_BUILDNUM=%d", spec.Build.Number),
			"PATH=" + filepath.Join(prefixDir, "bin") + string(os.PathListSeparator) + os.Getenv("PATH"),
		},
	}
	if err := runner.Run(ctx, script); err != nil {
		return nil, err
	}

	recordPath := spec.Build.Record
	if recordPath == "" {
		recordPath = defaultRecord
	}
	if !filepath.IsAbs(recordPath) {
		recordPath = filepath.Join(srcDir, recordPath)
	}
	recorded, err := readRecord(recordPath)
	if err != nil {
		return nil, err
	}

	files, err := b.relativize(recorded, prefixDir)
	if err != nil {
		return nil, err
	}
	// the build must actually provide the package it
	// claims to install
	if !containsImport(files, spec.Package.Name) {
		return nil, fmt.Errorf("installed files do not provide package: %s", spec.Package.Name)
	}

	archivePath, err := b.export(ctx, prefixDir, files)
	if err != nil {
		return nil, err
	}

	fingerprint, err := pfx.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("build complete", "archive", archivePath, "files", len(files))
	return &Result{
		ID:          uuid.NewString(),
		Files:       files,
		ArchivePath: archivePath,
		Fingerprint: fingerprint,
		Prefix:      pfx,
	}, nil
}

// installLocked installs every locked package into the
// prefix by running a package statement per entry.
func (b *Builder) installLocked(ctx context.Context, pfx *prefix.Prefix) error {
	bctx := &pipelines.BuildContext{
		Context:          ctx,
		WorkingDirectory: b.opts.WorkDir,
		FS:               pfx.FS(),
	}

	var installed []lockfile.Package
	for _, k := range b.opts.Lock.SortedKeys() {
		p := b.opts.Lock.Packages[k]
		if p.Type == v1.PackageFile {
			continue
		}
		p.Name = k

		s := statements.NewPackageStatement(b.opts.Keepers, b.opts.Dl)
		s.SetOptions(cbev1.Options{
			"type":      string(p.Type),
			"name":      p.Name,
			"version":   p.Version,
			"resolved":  p.Resolved,
			"integrity": p.Integrity,
		})
		if _, err := s.Run(bctx); err != nil {
			return fmt.Errorf("installing %s: %w", p.Name, err)
		}
		installed = append(installed, p)
	}
	if len(installed) == 0 {
		return nil
	}
	return packages.Record(ctx, prefix.RecordFile, installed, pfx.FS(), func(t lockfile.Package) string {
		return fmt.Sprintf("%s=%s", t.Name, t.Version)
	})
}

// unpackSource fetches and verifies the source archive,
// then expands it and returns the source tree root.
func (b *Builder) unpackSource(ctx context.Context) (string, error) {
	log := logr.FromContextOrDiscard(ctx)
	spec := b.opts.Recipe.Spec

	srcRoot := filepath.Join(b.opts.WorkDir, "src")
	if err := os.MkdirAll(srcRoot, 0755); err != nil {
		return "", err
	}
	if spec.Source == nil {
		return srcRoot, nil
	}

	bctx := &pipelines.BuildContext{
		Context:          ctx,
		WorkingDirectory: b.opts.WorkDir,
		FS:               fs.DirFS(srcRoot),
	}
	s := statements.NewSourceStatement(b.opts.Dl)
	s.SetOptions(cbev1.Options{
		"uri":    spec.Source.URI,
		"sha256": spec.Source.SHA256,
	})
	if _, err := s.Run(bctx); err != nil {
		return "", fmt.Errorf("unpacking source: %w", err)
	}

	if spec.Source.Folder != "" {
		return filepath.Join(srcRoot, spec.Source.Folder), nil
	}
	// most source archives contain a single top-level
	// directory, so descend into it
	entries, err := os.ReadDir(srcRoot)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(srcRoot, entries[0].Name()), nil
	}
	log.V(1).Info("source archive has no single root, using the unpack directory")
	return srcRoot, nil
}

// relativize maps recorded install paths onto
// prefix-relative ones.
func (b *Builder) relativize(recorded []string, prefixDir string) ([]string, error) {
	out := make([]string, 0, len(recorded))
	for _, f := range recorded {
		if !filepath.IsAbs(f) {
			out = append(out, filepath.ToSlash(filepath.Clean(f)))
			continue
		}
		rel, err := filepath.Rel(prefixDir, f)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("recorded file is outside the prefix: %s", f)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

// export collects the recorded files and artifact
// metadata into a compressed tarball.
func (b *Builder) export(ctx context.Context, prefixDir string, files []string) (string, error) {
	spec := b.opts.Recipe.Spec

	run, err := b.opts.Target.Select(spec.Requirements.Run)
	if err != nil {
		return "", err
	}

	artifact := fs.NewMemFS()
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(prefixDir, f))
		if err != nil {
			return "", fmt.Errorf("collecting %s: %w", f, err)
		}
		if err := artifact.MkdirAll(filepath.Dir(f), 0755); err != nil {
			return "", err
		}
		if err := artifact.WriteFile(f, data, 0644); err != nil {
			return "", err
		}
	}
	if err := writeInfo(ctx, artifact, newInfo(spec, run), files); err != nil {
		return "", err
	}

	archivePath := filepath.Join(b.opts.WorkDir, fmt.Sprintf("%s-%s-%d.tar.gz", spec.Package.Name, spec.Package.Version, spec.Build.Number))
	out, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := archiveutil.Gutar(ctx, artifact, out); err != nil {
		return "", err
	}
	return archivePath, nil
}
