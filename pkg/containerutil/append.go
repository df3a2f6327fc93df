package containerutil

import (
	"context"
	"fmt"
	"path"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/Snakdy/container-build-engine/pkg/oci/auth"
	"github.com/go-logr/logr"
	"github.com/google/go-containerregistry/pkg/crane"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
)

const MagicImageScratch = "scratch"
const DefaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Append layers an environment prefix on top of a base
// image, rooted at prefixPath, and points PATH and PREFIX
// at it.
func Append(ctx context.Context, rootfs fs.FullFS, baseRef string, platform *v1.Platform, prefixPath string) (v1.Image, error) {
	log := logr.FromContextOrDiscard(ctx)
	// pull the base image
	log.Info("pulling base image", "base", baseRef)
	var base v1.Image
	var err error

	if baseRef == MagicImageScratch {
		base = empty.Image
	} else {
		base, err = crane.Pull(baseRef, crane.WithContext(ctx), crane.WithPlatform(platform), crane.WithAuthFromKeychain(auth.KeyChain(auth.Auth{})))
		if err != nil {
			return nil, fmt.Errorf("pulling %s: %w", baseRef, err)
		}
	}

	// create our new layer
	log.Info("containerising environment")
	layer, err := NewLayer(ctx, rootfs, prefixPath)
	if err != nil {
		return nil, err
	}

	// append our layer
	layers := []mutate.Addendum{
		{
			Layer: layer,
			History: v1.History{
				Author:    "bake-your-own",
				CreatedBy: "bake-your-own build",
				Created:   v1.Time{},
			},
		},
	}
	withData, err := mutate.Append(base, layers...)
	if err != nil {
		return nil, fmt.Errorf("appending layers: %w", err)
	}
	// grab a copy of the base image's config file, and set
	// our env vars so the environment is active by default
	cfg, err := withData.ConfigFile()
	if err != nil {
		return nil, err
	}
	cfg = cfg.DeepCopy()
	cfg.Author = "github.com/djcass44/bake-your-own"
	cfg.Config.WorkingDir = prefixPath

	binPath := path.Join(prefixPath, "bin")
	var found bool
	for i, e := range cfg.Config.Env {
		if strings.HasPrefix(e, "PATH=") {
			cfg.Config.Env[i] = cfg.Config.Env[i] + ":" + binPath
			found = true
		}
	}
	if !found {
		cfg.Config.Env = append(cfg.Config.Env, "PATH="+DefaultPath+":"+binPath)
	}
	cfg.Config.Env = append(cfg.Config.Env, "PREFIX="+prefixPath)
	if cfg.Config.Labels == nil {
		cfg.Config.Labels = map[string]string{}
	}

	// package everything up
	img, err := mutate.ConfigFile(withData, cfg)
	if err != nil {
		return nil, err
	}
	return img, nil
}
