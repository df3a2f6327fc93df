package containerutil

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"path"
	"path/filepath"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/djcass44/bake-your-own/pkg/fileutil"
	"github.com/go-logr/logr"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// NewLayer packages an environment prefix into an OCI
// layer rooted at chroot (e.g. /opt/env).
func NewLayer(ctx context.Context, rootfs fs.FullFS, chroot string) (v1.Layer, error) {
	layerBuf, err := tarPrefix(ctx, rootfs, chroot)
	if err != nil {
		return nil, fmt.Errorf("tarring prefix: %w", err)
	}
	layerBytes := layerBuf.Bytes()
	return tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewBuffer(layerBytes)), nil
	}, tarball.WithCompressedCaching, tarball.WithMediaType(types.OCILayer))
}

// tarPrefix walks the prefix filesystem adding every entry
// to a tar archive with root -> chroot. Timestamps are
// zeroed so the same prefix always produces the same
// layer.
func tarPrefix(ctx context.Context, rootfs fs.FullFS, chroot string) (*bytes.Buffer, error) {
	log := logr.FromContextOrDiscard(ctx)
	buf := bytes.NewBuffer(nil)
	tw := tar.NewWriter(buf)
	defer tw.Close()

	err := iofs.WalkDir(rootfs, ".", func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name := path.Join(chroot, filepath.ToSlash(p))

		if d.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Typeflag: tar.TypeDir,
				Mode:     int64(info.Mode().Perm()),
				ModTime:  v1.Time{}.Time,
			})
		}

		link, err := fileutil.IsSymbolicLink(rootfs, p)
		if err != nil {
			return err
		}
		if link {
			target, err := rootfs.Readlink(p)
			if err != nil {
				return err
			}
			return tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeSymlink,
				Linkname: target,
				Mode:     int64(info.Mode().Perm()),
				ModTime:  v1.Time{}.Time,
			})
		}

		log.V(5).Info("adding file to layer", "name", name, "size", info.Size())
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     int64(info.Mode().Perm()),
			Size:     info.Size(),
			ModTime:  v1.Time{}.Time,
		}); err != nil {
			return fmt.Errorf("tar.Writer.WriteHeader(%q): %w", name, err)
		}
		data, err := rootfs.ReadFile(p)
		if err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("io.Copy(%q): %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}
