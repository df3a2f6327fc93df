package builder

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildScript fakes the external installer: it installs a
// module into the prefix and records what it installed.
const buildScript = `mkdir -p "$PREFIX/lib/site-packages/$PKG_NAME" &&
echo "version = '$PKG_VERSION'" > "$PREFIX/lib/site-packages/$PKG_NAME/__init__.py" &&
echo "$PREFIX/lib/site-packages/$PKG_NAME/__init__.py" > record.txt`

func testSource(t *testing.T, dir string) (string, string) {
	buf := new(bytes.Buffer)
	gzw := gzip.NewWriter(buf)
	tw := tar.NewWriter(gzw)
	content := []byte("from setuptools import setup\n")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "menpo-0.8.1/setup.py",
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(content)),
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	path := filepath.Join(dir, "menpo-0.8.1.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	sum, err := lockfile.Sha256(path)
	require.NoError(t, err)
	return path, sum
}

func testOptions(t *testing.T, src, sha string, script []string) Options {
	dl, err := downloader.NewDownloader(t.TempDir())
	require.NoError(t, err)

	r := v1.Recipe{
		Spec: v1.RecipeSpec{
			Package: v1.PackageIdentity{Name: "menpo", Version: "0.8.1"},
			Source:  &v1.Source{URI: src, SHA256: sha},
			Build:   v1.Build{Script: script, Record: "record.txt"},
			Requirements: v1.Requirements{
				Run: []v1.Requirement{
					{Name: "numpy", Version: ">=1.10,<=1.14"},
				},
			},
			About: v1.About{License: "BSD", Home: "https://github.com/menpo/menpo"},
		},
	}
	return Options{
		Recipe: r,
		Lock: &lockfile.Lock{
			Name:            "menpo",
			LockfileVersion: 1,
			Packages: map[string]lockfile.Package{
				src: {
					Name: src,
					Type: v1.PackageFile,
				},
				"numpy": {
					Name:    "numpy",
					Type:    v1.PackageConda,
					Version: "1.13.3",
					Direct:  true,
				},
			},
		},
		Target:    recipe.Target{Python: "2.7", Platform: "linux"},
		RecipeDir: t.TempDir(),
		WorkDir:   t.TempDir(),
		Dl:        dl,
	}
}

func TestNew(t *testing.T) {
	src, sha := testSource(t, t.TempDir())

	t.Run("missing lock is rejected", func(t *testing.T) {
		opts := testOptions(t, src, sha, []string{buildScript})
		opts.Lock = nil
		_, err := New(opts)
		assert.Error(t, err)
	})
	t.Run("mismatched lock is rejected", func(t *testing.T) {
		opts := testOptions(t, src, sha, []string{buildScript})
		opts.Recipe.Spec.Requirements.Build = []v1.Requirement{{Name: "cython"}}
		_, err := New(opts)
		assert.Error(t, err)
	})
}

func TestBuilder_Build(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	src, sha := testSource(t, t.TempDir())

	opts := testOptions(t, src, sha, []string{buildScript})
	// drop the conda requirement so no channel access is
	// needed
	opts.Recipe.Spec.Requirements.Run = nil
	delete(opts.Lock.Packages, "numpy")

	b, err := New(opts)
	require.NoError(t, err)

	result, err := b.Build(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, []string{"lib/site-packages/menpo/__init__.py"}, result.Files)
	assert.FileExists(t, result.ArchivePath)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestBuilder_Build_isIdempotent(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	src, sha := testSource(t, t.TempDir())

	run := func(t *testing.T) *Result {
		opts := testOptions(t, src, sha, []string{buildScript})
		opts.Recipe.Spec.Requirements.Run = nil
		delete(opts.Lock.Packages, "numpy")

		b, err := New(opts)
		require.NoError(t, err)
		result, err := b.Build(ctx)
		require.NoError(t, err)
		return result
	}

	// building twice against clean environments produces
	// the same installed artifact set
	a := run(t)
	b := run(t)
	assert.Equal(t, a.Files, b.Files)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuilder_Build_failures(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))
	src, sha := testSource(t, t.TempDir())

	t.Run("failing script", func(t *testing.T) {
		opts := testOptions(t, src, sha, []string{"exit 1"})
		opts.Recipe.Spec.Requirements.Run = nil
		delete(opts.Lock.Packages, "numpy")

		b, err := New(opts)
		require.NoError(t, err)
		_, err = b.Build(ctx)
		assert.Error(t, err)
	})
	t.Run("script installs the wrong package", func(t *testing.T) {
		script := `mkdir -p "$PREFIX/lib/site-packages/other" &&
echo pass > "$PREFIX/lib/site-packages/other/__init__.py" &&
echo "$PREFIX/lib/site-packages/other/__init__.py" > record.txt`
		opts := testOptions(t, src, sha, []string{script})
		opts.Recipe.Spec.Requirements.Run = nil
		delete(opts.Lock.Packages, "numpy")

		b, err := New(opts)
		require.NoError(t, err)
		_, err = b.Build(ctx)
		assert.ErrorContains(t, err, "do not provide")
	})
	t.Run("corrupted source", func(t *testing.T) {
		opts := testOptions(t, src, "0000000000000000000000000000000000000000000000000000000000000000", []string{buildScript})
		opts.Recipe.Spec.Requirements.Run = nil
		delete(opts.Lock.Packages, "numpy")
		opts.Lock.Packages[src] = lockfile.Package{Name: src, Type: v1.PackageFile}

		b, err := New(opts)
		require.NoError(t, err)
		_, err = b.Build(ctx)
		assert.ErrorContains(t, err, "integrity mismatch")
	})
}
