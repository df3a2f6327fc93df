package statements

import (
	"context"
	"testing"

	"chainguard.dev/apko/pkg/apk/fs"
	cbev1 "github.com/Snakdy/container-build-engine/pkg/api/v1"
	"github.com/Snakdy/container-build-engine/pkg/pipelines"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStatement_Run(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	src, sum := testPackage(t, t.TempDir())

	dl, err := downloader.NewDownloader(t.TempDir())
	require.NoError(t, err)

	rootfs := fs.NewMemFS()
	bctx := &pipelines.BuildContext{
		Context:          ctx,
		WorkingDirectory: t.TempDir(),
		FS:               rootfs,
	}

	t.Run("archive is expanded into the workspace", func(t *testing.T) {
		s := NewSourceStatement(dl)
		s.SetOptions(cbev1.Options{
			"uri":    src,
			"sha256": sum,
		})
		_, err := s.Run(bctx)
		assert.NoError(t, err)

		_, err = rootfs.Stat("lib/site-packages/numpy/__init__.py")
		assert.NoError(t, err)
	})
	t.Run("checksum mismatch is rejected", func(t *testing.T) {
		s := NewSourceStatement(dl)
		s.SetOptions(cbev1.Options{
			"uri":    src,
			"sha256": "0000000000000000000000000000000000000000000000000000000000000000",
		})
		_, err := s.Run(bctx)
		assert.Error(t, err)
	})
	t.Run("missing uri is rejected", func(t *testing.T) {
		s := NewSourceStatement(dl)
		s.SetOptions(cbev1.Options{})
		_, err := s.Run(bctx)
		assert.Error(t, err)
	})
}
