package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/packages"
	"github.com/djcass44/bake-your-own/pkg/packages/conda"
	"github.com/djcass44/bake-your-own/pkg/packages/wheel"
	"github.com/djcass44/bake-your-own/pkg/recipe"
)

const (
	flagConfig   = "config"
	flagCacheDir = "cache-dir"
	flagPlatform = "platform"
	flagPython   = "python"
)

const defaultWheelIndex = "https://pypi.org"

// readRecipe loads a recipe, expands its environment
// templates and validates the result.
func readRecipe(path string) (v1.Recipe, error) {
	cfg, err := recipe.Read(path)
	if err != nil {
		return v1.Recipe{}, err
	}
	cfg = recipe.Expand(cfg)
	if err := recipe.Validate(cfg); err != nil {
		return v1.Recipe{}, err
	}
	return cfg, nil
}

// offlineKeepers returns package managers that can unpack
// already-resolved packages without touching any channel.
func offlineKeepers() map[v1.PackageType]packages.PackageManager {
	return map[v1.PackageType]packages.PackageManager{
		v1.PackageConda: conda.NewPackageKeeperFromIndices(nil),
		v1.PackageWheel: wheel.NewPackageKeeper(defaultWheelIndex),
	}
}

// onlineKeepers returns package managers backed by the
// channels the recipe declares, used for resolution.
func onlineKeepers(ctx context.Context, cfg v1.Recipe, target recipe.Target) (map[v1.PackageType]packages.PackageManager, error) {
	condaKeeper, err := conda.NewPackageKeeper(ctx, repoURLs(cfg.Spec.Channels[strings.ToLower(string(v1.PackageConda))]), subdirFor(target.Platform))
	if err != nil {
		return nil, err
	}
	wheelIndex := defaultWheelIndex
	if repos := cfg.Spec.Channels[strings.ToLower(string(v1.PackageWheel))]; len(repos) > 0 {
		wheelIndex = repos[0].URL
	}
	return map[v1.PackageType]packages.PackageManager{
		v1.PackageConda: condaKeeper,
		v1.PackageWheel: wheel.NewPackageKeeper(wheelIndex),
	}, nil
}

func repoURLs(repos []v1.Repository) []string {
	urls := make([]string, 0, len(repos))
	for _, r := range repos {
		urls = append(urls, r.URL)
	}
	return urls
}

// subdirFor maps a target platform to the channel
// subdirectory holding its packages.
func subdirFor(platform string) string {
	switch platform {
	case "linux":
		return "linux-64"
	case "osx":
		return "osx-64"
	case "win":
		return "win-64"
	default:
		return platform
	}
}

func getCacheDir(d string) string {
	if d == "" {
		d, _ = os.UserCacheDir()
		d = filepath.Join(d, "byo")
	}
	return filepath.Clean(d)
}
