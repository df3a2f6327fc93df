package packages

import (
	"context"

	"chainguard.dev/apko/pkg/apk/fs"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
)

// PackageManager resolves requirements against an
// ecosystem index and unpacks downloaded packages into
// an environment prefix.
type PackageManager interface {
	Resolve(ctx context.Context, req v1.Requirement) ([]lockfile.Package, error)
	Unpack(ctx context.Context, pkg string, rootfs fs.FullFS) error
}
