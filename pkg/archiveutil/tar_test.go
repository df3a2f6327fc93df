package archiveutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"testing"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tarball(t *testing.T, gzipped bool) *bytes.Buffer {
	buf := new(bytes.Buffer)
	var tw *tar.Writer
	var gzw *gzip.Writer
	if gzipped {
		gzw = gzip.NewWriter(buf)
		tw = tar.NewWriter(gzw)
	} else {
		tw = tar.NewWriter(buf)
	}

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "menpo-0.8.1/",
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}))
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
	if gzw != nil {
		require.NoError(t, gzw.Close())
	}
	return buf
}

func TestUntar(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	rootfs := fs.NewMemFS()
	require.NoError(t, Untar(ctx, tarball(t, false), rootfs))

	out, err := rootfs.ReadFile("menpo-0.8.1/setup.py")
	require.NoError(t, err)
	assert.Contains(t, string(out), "setuptools")
}

func TestGuntar(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	rootfs := fs.NewMemFS()
	require.NoError(t, Guntar(ctx, tarball(t, true), rootfs))

	_, err := rootfs.Stat("menpo-0.8.1/setup.py")
	assert.NoError(t, err)
}

func TestGutar_isDeterministic(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	rootfs := fs.NewMemFS()
	require.NoError(t, rootfs.MkdirAll("lib/menpo", 0755))
	require.NoError(t, rootfs.WriteFile("lib/menpo/__init__.py", []byte("version = '0.8.1'\n"), 0644))
	require.NoError(t, rootfs.WriteFile("lib/menpo/base.py", []byte("pass\n"), 0644))

	a := new(bytes.Buffer)
	require.NoError(t, Gutar(ctx, rootfs, a))
	b := new(bytes.Buffer)
	require.NoError(t, Gutar(ctx, rootfs, b))

	assert.Equal(t, a.Bytes(), b.Bytes())

	// and the archive round-trips
	out := fs.NewMemFS()
	require.NoError(t, Guntar(ctx, bytes.NewReader(a.Bytes()), out))
	data, err := out.ReadFile("lib/menpo/__init__.py")
	require.NoError(t, err)
	assert.Contains(t, string(data), "0.8.1")
}
