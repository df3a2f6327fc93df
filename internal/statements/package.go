package statements

import (
	"fmt"

	cbev1 "github.com/Snakdy/container-build-engine/pkg/api/v1"
	"github.com/Snakdy/container-build-engine/pkg/pipelines"
	"github.com/Snakdy/container-build-engine/pkg/pipelines/utils"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/packages"
	"github.com/go-logr/logr"
)

func NewPackageStatement(keepers map[v1.PackageType]packages.PackageManager, dl *downloader.Downloader) *PackageStatement {
	return &PackageStatement{
		keepers: keepers,
		dl:      dl,
	}
}

func (s *PackageStatement) Run(ctx *pipelines.BuildContext, _ ...cbev1.Options) (cbev1.Options, error) {
	log := logr.FromContextOrDiscard(ctx.Context)

	packageType, err := cbev1.GetRequired[string](s.options, "type")
	if err != nil {
		return cbev1.Options{}, err
	}
	name, err := cbev1.GetRequired[string](s.options, "name")
	if err != nil {
		return cbev1.Options{}, err
	}
	version, err := cbev1.GetRequired[string](s.options, "version")
	if err != nil {
		return cbev1.Options{}, err
	}
	resolved, err := cbev1.GetRequired[string](s.options, "resolved")
	if err != nil {
		return cbev1.Options{}, err
	}
	// integrity is optional: hand-written locks may not
	// carry one
	integrity, _ := s.options["integrity"].(string)

	keeper, ok := s.keepers[v1.PackageType(packageType)]
	if !ok {
		return cbev1.Options{}, fmt.Errorf("unknown package type: %s", packageType)
	}

	log.V(1).Info("installing package", "name", name, "version", version)

	// download the package
	pkgPath, err := s.dl.DownloadVerified(ctx.Context, resolved, integrity)
	if err != nil {
		return cbev1.Options{}, err
	}

	// unpack the package into the
	// environment prefix
	if err := keeper.Unpack(ctx.Context, pkgPath, ctx.FS); err != nil {
		return cbev1.Options{}, err
	}
	return cbev1.Options{}, nil
}

func (*PackageStatement) Name() string {
	return StatementPackage
}

func (*PackageStatement) MutatesConfig() bool {
	return false
}

func (*PackageStatement) MutatesFS() bool {
	return true
}

func (s *PackageStatement) SetOptions(options cbev1.Options) {
	if s.options == nil {
		s.options = map[string]any{}
	}
	utils.CopyMap(options, s.options)
}
