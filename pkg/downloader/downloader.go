package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-getter"
)

type Downloader struct {
	cacheDir string
}

func NewDownloader(cacheDir string) (*Downloader, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	return &Downloader{cacheDir: cacheDir}, nil
}

// Download fetches a file into the cache and returns the
// path it was stored at.
func (d *Downloader) Download(ctx context.Context, src string) (string, error) {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("downloading file", "src", src)

	uri, err := url.Parse(src)
	if err != nil {
		log.Error(err, "failed to parse url")
		return "", err
	}

	// download the file to a predictable location so that
	// we can avoid repeated downloads. The source is hashed
	// so that files with the same name from different
	// sources cannot collide
	dst := filepath.Join(d.cacheDir, HashString(src), filepath.Base(uri.Path))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	log.V(1).Info("preparing to download file", "dst", dst)

	client := &getter.Client{
		Ctx:             ctx,
		Src:             src,
		Dst:             dst,
		Mode:            getter.ClientModeFile,
		DisableSymlinks: true,
		// fetch files verbatim: go-getter's default decompressors
		// would otherwise expand archives by file extension, which
		// breaks integrity verification against the source archive
		Decompressors: map[string]getter.Decompressor{},
		ProgressListener: &progressTracker{
			out: os.Stderr,
		},
	}
	if err := client.Get(); err != nil {
		log.Error(err, "failed to download file")
		return "", err
	}
	// we need to chmod the files so that the root group
	// can access them as if they were the owner
	if err := os.Chmod(dst, 0664); err != nil {
		log.Error(err, "failed to update file permissions", "file", dst)
		return "", err
	}

	return dst, nil
}

// DownloadVerified is the same as Download, but it also
// checks the file against an expected integrity string
// ("sha256:<hex>"). Files that fail verification are
// removed from the cache.
func (d *Downloader) DownloadVerified(ctx context.Context, src, integrity string) (string, error) {
	log := logr.FromContextOrDiscard(ctx)

	path, err := d.Download(ctx, src)
	if err != nil {
		return "", err
	}
	if integrity == "" {
		log.V(1).Info("skipping verification as no integrity was provided", "src", src)
		return path, nil
	}

	expected := strings.TrimPrefix(integrity, "sha256:")
	sum, err := lockfile.Sha256(path)
	if err != nil {
		return "", err
	}
	if sum != expected {
		_ = os.Remove(path)
		return "", fmt.Errorf("integrity mismatch for %s: expected %s, got %s", src, expected, sum)
	}
	log.V(1).Info("verified file", "src", src, "sha256", sum)
	return path, nil
}
