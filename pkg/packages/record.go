package packages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
)

// Record appends an entry per package to the record file
// inside the prefix (e.g. conda-meta/history), creating
// it if needed. Existing entries are preserved.
func Record[T any](ctx context.Context, path string, packages []T, rootfs fs.FullFS, format func(t T) string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)
	log.V(5).Info("recording packages")

	path = filepath.Clean(path)

	if err := rootfs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	log.V(5).Info("appending to the package record")
	f, err := rootfs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening file '%s': %w", path, err)
	}
	defer f.Close()

	out := strings.Builder{}
	for _, pkg := range packages {
		log.V(5).Info("recording package", "pkg", pkg)
		out.WriteString(format(pkg))
		out.WriteString("\n")
	}

	if _, err = f.Write([]byte(out.String())); err != nil {
		return fmt.Errorf("writing: %w", err)
	}

	return nil
}
