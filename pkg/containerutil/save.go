package containerutil

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

// Save writes an image to a local tar archive that can be
// loaded by a container runtime.
func Save(ctx context.Context, img v1.Image, ref, path string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("ref", ref, "path", path)
	log.Info("saving image")

	tag, err := name.NewTag(ref)
	if err != nil {
		return fmt.Errorf("parsing tag %s: %w", ref, err)
	}
	if err := tarball.WriteToFile(path, tag, img); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
