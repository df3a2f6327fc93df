package cmd

import (
	"fmt"

	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "print the fully-resolved form of a recipe",
	RunE:  render,
}

func init() {
	renderCmd.Flags().StringP(flagConfig, "c", "", "path to a recipe file")
	renderCmd.Flags().String(flagPlatform, "linux", "target platform")
	renderCmd.Flags().String(flagPython, "2.7", "target interpreter version")

	_ = renderCmd.MarkFlagRequired(flagConfig)
	_ = renderCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
}

func render(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString(flagConfig)
	platform, _ := cmd.Flags().GetString(flagPlatform)
	python, _ := cmd.Flags().GetString(flagPython)

	// read the recipe file
	cfg, err := readRecipe(configPath)
	if err != nil {
		return err
	}

	// evaluate selectors for the target so the output
	// shows exactly what a build would use
	target := recipe.Target{Python: python, Platform: platform}
	if cfg.Spec.Requirements.Build, err = target.Select(cfg.Spec.Requirements.Build); err != nil {
		return err
	}
	if cfg.Spec.Requirements.Run, err = target.Select(cfg.Spec.Requirements.Run); err != nil {
		return err
	}
	if cfg.Spec.Test.Requires, err = target.Select(cfg.Spec.Test.Requires); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
