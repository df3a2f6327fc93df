package archiveutil

import (
	"archive/tar"
	"compress/gzip"
	"context"
	iofs "io/fs"
	"path/filepath"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/djcass44/bake-your-own/pkg/fileutil"
	"github.com/go-logr/logr"
	"io"
)

// Gutar packs the contents of a filesystem into a
// gzipped tar archive with deterministic ordering and
// zeroed timestamps, so packing the same tree twice
// yields the same bytes.
func Gutar(ctx context.Context, rootfs fs.FullFS, w io.Writer) error {
	gzw := gzip.NewWriter(w)
	if err := Tar(ctx, rootfs, gzw); err != nil {
		_ = gzw.Close()
		return err
	}
	return gzw.Close()
}

// Tar packs the contents of a filesystem into a tar archive.
func Tar(ctx context.Context, rootfs fs.FullFS, w io.Writer) error {
	log := logr.FromContextOrDiscard(ctx)
	tw := tar.NewWriter(w)
	defer tw.Close()

	// fs.WalkDir yields entries in lexical order, which
	// keeps the archive deterministic
	err := iofs.WalkDir(rootfs, ".", func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name := filepath.ToSlash(path)

		if d.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Name:     name + "/",
				Typeflag: tar.TypeDir,
				Mode:     int64(info.Mode().Perm()),
			})
		}

		link, err := fileutil.IsSymbolicLink(rootfs, path)
		if err != nil {
			return err
		}
		if link {
			target, err := rootfs.Readlink(path)
			if err != nil {
				return err
			}
			log.V(5).Info("packing symbolic link", "name", name, "target", target)
			return tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeSymlink,
				Linkname: target,
				Mode:     int64(info.Mode().Perm()),
			})
		}

		log.V(5).Info("packing file", "name", name, "size", info.Size())
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     int64(info.Mode().Perm()),
			Size:     info.Size(),
		}); err != nil {
			return err
		}
		data, err := rootfs.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}
