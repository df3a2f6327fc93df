package cmd

import (
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/djcass44/bake-your-own/internal/containerutil"
	"github.com/djcass44/bake-your-own/pkg/builder"
	ociutil "github.com/djcass44/bake-your-own/pkg/containerutil"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/go-logr/logr"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build a package from a recipe",
	RunE:  build,
}

const (
	flagSave   = "save"
	flagPush   = "push"
	flagBase   = "base"
	flagCAFile = "ca-file"
)

func init() {
	buildCmd.Flags().StringP(flagConfig, "c", "", "path to a recipe file")
	buildCmd.Flags().String(flagCacheDir, "", "cache directory (defaults to user cache dir)")
	buildCmd.Flags().String(flagPlatform, "linux", "target platform")
	buildCmd.Flags().String(flagPython, "2.7", "target interpreter version")
	buildCmd.Flags().String(flagSave, "", "path to save the environment as an image tar archive")
	buildCmd.Flags().String(flagPush, "", "image reference to push the environment to")
	buildCmd.Flags().String(flagBase, ociutil.MagicImageScratch, "base image to layer the environment onto")
	buildCmd.Flags().String(flagCAFile, "", "path to a file containing additional CA certificates (PEM)")

	_ = buildCmd.MarkFlagRequired(flagConfig)
	_ = buildCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
	_ = buildCmd.MarkFlagDirname(flagCacheDir)
}

func build(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	configPath, _ := cmd.Flags().GetString(flagConfig)
	cacheDir, _ := cmd.Flags().GetString(flagCacheDir)
	platform, _ := cmd.Flags().GetString(flagPlatform)
	python, _ := cmd.Flags().GetString(flagPython)
	localPath, _ := cmd.Flags().GetString(flagSave)
	pushRef, _ := cmd.Flags().GetString(flagPush)
	baseImage, _ := cmd.Flags().GetString(flagBase)
	caFile, _ := cmd.Flags().GetString(flagCAFile)

	// read the recipe file
	cfg, err := readRecipe(configPath)
	if err != nil {
		return err
	}

	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return err
	}

	// read the lockfile
	lock, err := lockfile.Read(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	dl, err := downloader.NewDownloader(getCacheDir(cacheDir))
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", fmt.Sprintf("%s-*", cfg.Spec.Package.Name))
	if err != nil {
		return err
	}
	log.V(3).Info("prepared work directory", "path", workDir)

	b, err := builder.New(builder.Options{
		Recipe:    cfg,
		Lock:      lock,
		Target:    recipe.Target{Python: python, Platform: platform},
		RecipeDir: filepath.Dir(configPath),
		WorkDir:   workDir,
		Keepers:   offlineKeepers(),
		Dl:        dl,
	})
	if err != nil {
		return err
	}

	result, err := b.Build(cmd.Context())
	if err != nil {
		return err
	}
	log.Info("built package", "archive", result.ArchivePath, "fingerprint", result.Fingerprint)
	fmt.Println(result.ArchivePath)

	if localPath == "" && pushRef == "" {
		return nil
	}

	// containerise the environment
	prefixPath := filepath.Join("/opt", cfg.Spec.Package.Name)
	imgPlatform, _ := v1.ParsePlatform(fmt.Sprintf("%s/amd64", platform))
	img, err := ociutil.Append(cmd.Context(), result.Prefix.FS(), baseImage, imgPlatform, prefixPath)
	if err != nil {
		return err
	}

	if localPath != "" {
		ref := fmt.Sprintf("%s:%s", cfg.Spec.Package.Name, cfg.Spec.Package.Version)
		if err := ociutil.Save(cmd.Context(), img, ref, localPath); err != nil {
			return err
		}
	}
	if pushRef != "" {
		certPool, err := readCertPool(caFile)
		if err != nil {
			return err
		}
		if err := containerutil.Push(cmd.Context(), img, pushRef, certPool); err != nil {
			return err
		}
	}
	return nil
}

func readCertPool(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if caFile == "" {
		return pool, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", caFile, err)
	}
	pool.AppendCertsFromPEM(data)
	return pool, nil
}
