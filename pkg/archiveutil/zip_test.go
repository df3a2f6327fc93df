package archiveutil

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnzip(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	f, err := zw.Create("mock/__init__.py")
	require.NoError(t, err)
	_, err = f.Write([]byte("__version__ = '2.0.0'\n"))
	require.NoError(t, err)
	f, err = zw.Create("mock-2.0.0.dist-info/METADATA")
	require.NoError(t, err)
	_, err = f.Write([]byte("Name: mock\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	rootfs := fs.NewMemFS()
	require.NoError(t, Unzip(ctx, bytes.NewReader(buf.Bytes()), int64(buf.Len()), rootfs))

	out, err := rootfs.ReadFile("mock/__init__.py")
	require.NoError(t, err)
	assert.Contains(t, string(out), "2.0.0")

	_, err = rootfs.Stat("mock-2.0.0.dist-info/METADATA")
	assert.NoError(t, err)
}
