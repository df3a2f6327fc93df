package prefix

import (
	"context"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/packages"
	"github.com/go-logr/logr"
)

// RecordFile is where installed packages are recorded
// inside a prefix.
const RecordFile = "conda-meta/history"

// Prefix is an environment root that packages are
// installed into.
type Prefix struct {
	rootfs fs.FullFS
	dir    string
}

// New returns a prefix backed by a directory on disk.
func New(dir string) *Prefix {
	return &Prefix{
		rootfs: fs.DirFS(dir),
		dir:    dir,
	}
}

// NewMem returns an in-memory prefix. Used by tests.
func NewMem() *Prefix {
	return &Prefix{
		rootfs: fs.NewMemFS(),
	}
}

func (p *Prefix) FS() fs.FullFS {
	return p.rootfs
}

// Dir returns the on-disk root, or an empty string for
// in-memory prefixes.
func (p *Prefix) Dir() string {
	return p.dir
}

// Install downloads each package, unpacks it into the
// prefix and appends it to the package record.
func (p *Prefix) Install(ctx context.Context, keeper packages.PackageManager, dl *downloader.Downloader, pkgs []lockfile.Package) error {
	log := logr.FromContextOrDiscard(ctx)

	for _, pkg := range pkgs {
		log.V(1).Info("installing package", "name", pkg.Name, "version", pkg.Version)

		path, err := dl.DownloadVerified(ctx, pkg.Resolved, pkg.Integrity)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", pkg.Name, err)
		}
		if err := keeper.Unpack(ctx, path, p.rootfs); err != nil {
			return fmt.Errorf("unpacking %s: %w", pkg.Name, err)
		}
	}

	return packages.Record(ctx, RecordFile, pkgs, p.rootfs, func(t lockfile.Package) string {
		return fmt.Sprintf("%s=%s", t.Name, t.Version)
	})
}

// Files enumerates every regular file in the prefix,
// sorted lexically.
func (p *Prefix) Files() ([]string, error) {
	var out []string
	err := iofs.WalkDir(p.rootfs, ".", func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		out = append(out, filepath.ToSlash(path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
