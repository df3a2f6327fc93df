package statements

import (
	"fmt"
	"os"
	"strings"

	cbev1 "github.com/Snakdy/container-build-engine/pkg/api/v1"
	"github.com/Snakdy/container-build-engine/pkg/pipelines"
	"github.com/Snakdy/container-build-engine/pkg/pipelines/utils"
	"github.com/djcass44/bake-your-own/pkg/archiveutil"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/go-logr/logr"
)

func NewSourceStatement(dl *downloader.Downloader) *SourceStatement {
	return &SourceStatement{
		dl: dl,
	}
}

// Run fetches a source archive, verifies it and expands
// it into the build context filesystem.
func (s *SourceStatement) Run(ctx *pipelines.BuildContext, _ ...cbev1.Options) (cbev1.Options, error) {
	log := logr.FromContextOrDiscard(ctx.Context)

	uri, err := cbev1.GetRequired[string](s.options, "uri")
	if err != nil {
		return cbev1.Options{}, err
	}
	sha256, _ := s.options["sha256"].(string)

	var integrity string
	if sha256 != "" {
		integrity = "sha256:" + sha256
	}
	path, err := s.dl.DownloadVerified(ctx.Context, uri, integrity)
	if err != nil {
		return cbev1.Options{}, err
	}

	log.V(1).Info("unpacking source archive", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return cbev1.Options{}, err
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		err = archiveutil.Guntar(ctx.Context, f, ctx.FS)
	case strings.HasSuffix(path, ".tar.bz2"):
		err = archiveutil.Buntar(ctx.Context, f, ctx.FS)
	case strings.HasSuffix(path, ".tar.xz"):
		err = archiveutil.XZuntar(ctx.Context, f, ctx.FS)
	case strings.HasSuffix(path, ".tar.zst"):
		err = archiveutil.Zuntar(ctx.Context, f, ctx.FS)
	case strings.HasSuffix(path, ".tar"):
		err = archiveutil.Untar(ctx.Context, f, ctx.FS)
	case strings.HasSuffix(path, ".zip"):
		info, serr := f.Stat()
		if serr != nil {
			return cbev1.Options{}, serr
		}
		err = archiveutil.Unzip(ctx.Context, f, info.Size(), ctx.FS)
	default:
		err = fmt.Errorf("unknown source archive: %s", path)
	}
	if err != nil {
		return cbev1.Options{}, err
	}
	return cbev1.Options{}, nil
}

func (*SourceStatement) Name() string {
	return StatementSource
}

func (*SourceStatement) MutatesConfig() bool {
	return false
}

func (*SourceStatement) MutatesFS() bool {
	return true
}

func (s *SourceStatement) SetOptions(options cbev1.Options) {
	if s.options == nil {
		s.options = map[string]any{}
	}
	utils.CopyMap(options, s.options)
}
