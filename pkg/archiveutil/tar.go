package archiveutil

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Guntar is the same as Untar, but it first decodes the gzipped archive.
func Guntar(ctx context.Context, r io.Reader, rootfs fs.FullFS) error {
	gzp, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzp.Close()
	return Untar(ctx, gzp, rootfs)
}

// Buntar is the same as Untar, but it first decodes the bzip2 archive.
func Buntar(ctx context.Context, r io.Reader, rootfs fs.FullFS) error {
	return Untar(ctx, bzip2.NewReader(r), rootfs)
}

// XZuntar is the same as Untar, but it first decodes the xz archive.
func XZuntar(ctx context.Context, r io.Reader, rootfs fs.FullFS) error {
	xzp, err := xz.NewReader(r)
	if err != nil {
		return err
	}
	return Untar(ctx, xzp, rootfs)
}

// Zuntar is the same as Untar, but it first decodes the zstandard archive.
func Zuntar(ctx context.Context, r io.Reader, rootfs fs.FullFS) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()
	return Untar(ctx, zr, rootfs)
}

// Untar expands a tar archive into the given filesystem.
func Untar(ctx context.Context, r io.Reader, rootfs fs.FullFS) error {
	log := logr.FromContextOrDiscard(ctx)
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			log.Error(err, "failed to read file from archive")
			return err
		case header == nil:
			continue
		}

		target := filepath.Clean(header.Name)

		switch header.Typeflag {
		case tar.TypeDir:
			log.V(5).Info("creating directory", "target", target)
			if _, err := rootfs.Stat(target); err != nil {
				if err := rootfs.MkdirAll(target, 0755); err != nil {
					log.Error(err, "failed to create directory", "target", target)
					return err
				}
			}
		case tar.TypeSymlink:
			log.V(5).Info("creating symbolic link", "target", target, "link", header.Linkname)
			if err := rootfs.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := rootfs.Symlink(header.Linkname, target); err != nil {
				log.Error(err, "failed to create symbolic link", "target", target)
				return err
			}
		case tar.TypeReg:
			log.V(5).Info("creating file", "target", target, "mode", header.Mode)
			if err := rootfs.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := rootfs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_RDWR, os.FileMode(header.Mode))
			if err != nil {
				log.Error(err, "failed to open file", "target", target)
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				log.Error(err, "failed to extract file", "target", target)
				_ = f.Close()
				return err
			}
			_ = f.Close()
		}
	}
}
