package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/djcass44/bake-your-own/pkg/tester"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "run a recipe's test suite against a built package",
	RunE:  runTest,
}

const (
	flagArtifact    = "artifact"
	flagInterpreter = "interpreter"
)

func init() {
	testCmd.Flags().StringP(flagConfig, "c", "", "path to a recipe file")
	testCmd.Flags().StringP(flagArtifact, "a", "", "path to the built package archive")
	testCmd.Flags().String(flagCacheDir, "", "cache directory (defaults to user cache dir)")
	testCmd.Flags().String(flagPlatform, "linux", "target platform")
	testCmd.Flags().String(flagPython, "2.7", "target interpreter version")
	testCmd.Flags().String(flagInterpreter, "", "interpreter used for smoke imports")

	_ = testCmd.MarkFlagRequired(flagConfig)
	_ = testCmd.MarkFlagRequired(flagArtifact)
	_ = testCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
	_ = testCmd.MarkFlagDirname(flagCacheDir)
}

func runTest(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	configPath, _ := cmd.Flags().GetString(flagConfig)
	artifact, _ := cmd.Flags().GetString(flagArtifact)
	cacheDir, _ := cmd.Flags().GetString(flagCacheDir)
	platform, _ := cmd.Flags().GetString(flagPlatform)
	python, _ := cmd.Flags().GetString(flagPython)
	interpreter, _ := cmd.Flags().GetString(flagInterpreter)

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

	workDir, err := os.MkdirTemp("", fmt.Sprintf("%s-test-*", cfg.Spec.Package.Name))
	if err != nil {
		return err
	}
	log.V(3).Info("prepared work directory", "path", workDir)

	t, err := tester.New(tester.Options{
		Recipe:      cfg,
		Lock:        lock,
		Target:      recipe.Target{Python: python, Platform: platform},
		RecipeDir:   filepath.Dir(configPath),
		WorkDir:     workDir,
		Artifact:    artifact,
		Keepers:     offlineKeepers(),
		Dl:          dl,
		Interpreter: interpreter,
	})
	if err != nil {
		return err
	}
	return t.Test(cmd.Context())
}
