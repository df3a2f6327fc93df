package archiveutil

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
)

// Unzip expands a zip archive (e.g. a wheel) into the
// given filesystem.
func Unzip(ctx context.Context, r io.ReaderAt, size int64, rootfs fs.FullFS) error {
	log := logr.FromContextOrDiscard(ctx)

	zr, err := zip.NewReader(r, size)
	if err != nil {
		log.Error(err, "failed to open zip archive")
		return err
	}

	for _, zf := range zr.File {
		target := filepath.Clean(zf.Name)
		if zf.FileInfo().IsDir() {
			log.V(5).Info("creating directory", "target", target)
			if err := rootfs.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		log.V(5).Info("creating file", "target", target)
		if err := rootfs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		src, err := zf.Open()
		if err != nil {
			log.Error(err, "failed to read file from archive", "target", target)
			return err
		}
		dst, err := rootfs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_RDWR, zf.Mode())
		if err != nil {
			_ = src.Close()
			log.Error(err, "failed to open file", "target", target)
			return err
		}
		if _, err := io.Copy(dst, src); err != nil {
			_ = src.Close()
			_ = dst.Close()
			log.Error(err, "failed to extract file", "target", target)
			return err
		}
		_ = src.Close()
		_ = dst.Close()
	}
	return nil
}
