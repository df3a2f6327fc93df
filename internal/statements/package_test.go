package statements

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"chainguard.dev/apko/pkg/apk/fs"
	cbev1 "github.com/Snakdy/container-build-engine/pkg/api/v1"
	"github.com/Snakdy/container-build-engine/pkg/pipelines"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/packages"
	"github.com/djcass44/bake-your-own/pkg/packages/conda"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPackage writes a minimal tarball package to dir and
// returns its path and checksum.
func testPackage(t *testing.T, dir string) (string, string) {
	buf := new(bytes.Buffer)
	gzw := gzip.NewWriter(buf)
	tw := tar.NewWriter(gzw)
	content := []byte("# numpy\n")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "lib/site-packages/numpy/__init__.py",
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(content)),
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	path := filepath.Join(dir, "numpy-1.13.3-py27_0.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	sum, err := lockfile.Sha256(path)
	require.NoError(t, err)
	return path, sum
}

func TestPackageStatement_Run(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	pkg, sum := testPackage(t, t.TempDir())

	dl, err := downloader.NewDownloader(t.TempDir())
	require.NoError(t, err)

	keepers := map[v1.PackageType]packages.PackageManager{
		v1.PackageConda: conda.NewPackageKeeperFromIndices(nil),
	}

	rootfs := fs.NewMemFS()
	bctx := &pipelines.BuildContext{
		Context:          ctx,
		WorkingDirectory: t.TempDir(),
		FS:               rootfs,
	}

	t.Run("package is unpacked into the prefix", func(t *testing.T) {
		s := NewPackageStatement(keepers, dl)
		s.SetOptions(cbev1.Options{
			"type":      string(v1.PackageConda),
			"name":      "numpy",
			"version":   "1.13.3",
			"resolved":  pkg,
			"integrity": "sha256:" + sum,
		})
		_, err := s.Run(bctx)
		assert.NoError(t, err)

		_, err = rootfs.Stat("lib/site-packages/numpy/__init__.py")
		assert.NoError(t, err)
	})
	t.Run("corrupt package is rejected", func(t *testing.T) {
		s := NewPackageStatement(keepers, dl)
		s.SetOptions(cbev1.Options{
			"type":      string(v1.PackageConda),
			"name":      "numpy",
			"version":   "1.13.3",
			"resolved":  pkg,
			"integrity": "sha256:0000000000000000000000000000000000000000000000000000000000000000",
		})
		_, err := s.Run(bctx)
		assert.Error(t, err)
	})
	t.Run("unknown ecosystem is rejected", func(t *testing.T) {
		s := NewPackageStatement(keepers, dl)
		s.SetOptions(cbev1.Options{
			"type":     "cargo",
			"name":     "numpy",
			"version":  "1.13.3",
			"resolved": pkg,
		})
		_, err := s.Run(bctx)
		assert.Error(t, err)
	})
	t.Run("missing options are rejected", func(t *testing.T) {
		s := NewPackageStatement(keepers, dl)
		s.SetOptions(cbev1.Options{
			"name": "numpy",
		})
		_, err := s.Run(bctx)
		assert.Error(t, err)
	})
}
