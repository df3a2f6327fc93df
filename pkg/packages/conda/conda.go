package conda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/archiveutil"
	"github.com/djcass44/bake-your-own/pkg/channel"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/specs"
	"github.com/go-logr/logr"
)

func NewPackageKeeper(ctx context.Context, channels []string, subdir string) (*PackageKeeper, error) {
	log := logr.FromContextOrDiscard(ctx)

	var indices []*channel.Index
	for _, c := range channels {
		idx, err := channel.NewIndex(ctx, c, subdir)
		if err != nil {
			return nil, err
		}
		log.V(2).Info("added index", "count", idx.Count(), "source", c)
		indices = append(indices, idx)
	}
	return &PackageKeeper{
		indices: indices,
	}, nil
}

// NewPackageKeeperFromIndices skips index fetching. Used
// by tests and offline resolution.
func NewPackageKeeperFromIndices(indices []*channel.Index) *PackageKeeper {
	return &PackageKeeper{indices: indices}
}

func (p *PackageKeeper) Resolve(ctx context.Context, req v1.Requirement) ([]lockfile.Package, error) {
	set, err := specs.Parse(req.Version)
	if err != nil {
		return nil, fmt.Errorf("requirement %s: %w", req.Name, err)
	}
	for _, idx := range p.indices {
		out, err := idx.Resolve(ctx, req.Name, set)
		if err != nil {
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("no channel provides: %s %s", req.Name, set)
}

func (p *PackageKeeper) Unpack(ctx context.Context, pkg string, rootfs fs.FullFS) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("pkg", pkg)
	log.V(4).Info("unpacking conda package")

	f, err := os.Open(pkg)
	if err != nil {
		log.Error(err, "failed to open file")
		return err
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(pkg, ".tar.bz2"):
		return archiveutil.Buntar(ctx, f, rootfs)
	case strings.HasSuffix(pkg, ".tar.zst"), strings.HasSuffix(pkg, ".conda"):
		return archiveutil.Zuntar(ctx, f, rootfs)
	case strings.HasSuffix(pkg, ".tar.gz"):
		return archiveutil.Guntar(ctx, f, rootfs)
	default:
		return fmt.Errorf("unknown package extension: %s", filepath.Ext(pkg))
	}
}
