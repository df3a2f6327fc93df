package statements

import (
	cbev1 "github.com/Snakdy/container-build-engine/pkg/api/v1"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/packages"
)

const (
	StatementPackage = "package"
	StatementSource  = "source"
)

type PackageStatement struct {
	options cbev1.Options
	keepers map[v1.PackageType]packages.PackageManager
	dl      *downloader.Downloader
}

type SourceStatement struct {
	options cbev1.Options
	dl      *downloader.Downloader
}
