package wheel

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"chainguard.dev/apko/pkg/apk/fs"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = `{
	"info": {"name": "coverage", "version": "4.5.1"},
	"releases": {
		"4.4": [
			{"filename": "coverage-4.4.tar.gz", "url": "https://files.example.org/coverage-4.4.tar.gz", "packagetype": "sdist", "digests": {"sha256": "aaa"}}
		],
		"4.5": [
			{"filename": "coverage-4.5-py2.py3-none-any.whl", "url": "https://files.example.org/coverage-4.5-py2.py3-none-any.whl", "packagetype": "bdist_wheel", "digests": {"sha256": "bbb"}}
		],
		"4.5.1": [
			{"filename": "coverage-4.5.1-py2.py3-none-any.whl", "url": "https://files.example.org/coverage-4.5.1-py2.py3-none-any.whl", "packagetype": "bdist_wheel", "digests": {"sha256": "ccc"}}
		]
	}
}`

func TestPackageKeeper_Resolve(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/coverage/json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(testProject))
	}))
	defer ts.Close()

	keeper := NewPackageKeeper(ts.URL)

	t.Run("latest wheel wins", func(t *testing.T) {
		out, err := keeper.Resolve(ctx, v1.Requirement{Name: "coverage"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "4.5.1", out[0].Version)
		assert.Equal(t, v1.PackageWheel, out[0].Type)
		assert.Equal(t, "sha256:ccc", out[0].Integrity)
		assert.Equal(t, "pkg:pypi/coverage@4.5.1", out[0].Purl)
	})
	t.Run("constraint filters releases", func(t *testing.T) {
		out, err := keeper.Resolve(ctx, v1.Requirement{Name: "coverage", Version: "<4.5.1"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		// 4.4 only ships an sdist, so 4.5 is the best wheel
		assert.Equal(t, "4.5", out[0].Version)
	})
	t.Run("no wheel satisfies", func(t *testing.T) {
		_, err := keeper.Resolve(ctx, v1.Requirement{Name: "coverage", Version: "<4.5"})
		assert.Error(t, err)
	})
	t.Run("unknown project", func(t *testing.T) {
		_, err := keeper.Resolve(ctx, v1.Requirement{Name: "nose"})
		assert.Error(t, err)
	})
}

func TestPackageKeeper_Unpack(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	f, err := zw.Create("coverage/__init__.py")
	require.NoError(t, err)
	_, err = f.Write([]byte("__version__ = '4.5.1'\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "coverage-4.5.1-py2.py3-none-any.whl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	rootfs := fs.NewMemFS()
	keeper := NewPackageKeeper("https://pypi.example.org")
	require.NoError(t, keeper.Unpack(ctx, path, rootfs))

	out, err := rootfs.ReadFile("coverage/__init__.py")
	require.NoError(t, err)
	assert.Contains(t, string(out), "4.5.1")
}
