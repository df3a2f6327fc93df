package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/downloader"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/recipe"
	"github.com/djcass44/bake-your-own/pkg/specs"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "generate a lockfile",
	RunE:  lock,
}

func init() {
	lockCmd.Flags().StringP(flagConfig, "c", "", "path to a recipe file")
	lockCmd.Flags().String(flagCacheDir, "", "cache directory (defaults to user cache dir)")
	lockCmd.Flags().String(flagPlatform, "linux", "target platform")
	lockCmd.Flags().String(flagPython, "2.7", "target interpreter version")

	_ = lockCmd.MarkFlagRequired(flagConfig)
	_ = lockCmd.MarkFlagFilename(flagConfig, ".yaml", ".yml")
	_ = lockCmd.MarkFlagDirname(flagCacheDir)
}

func lock(cmd *cobra.Command, _ []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())

	configPath, _ := cmd.Flags().GetString(flagConfig)
	cacheDir, _ := cmd.Flags().GetString(flagCacheDir)
	platform, _ := cmd.Flags().GetString(flagPlatform)
	python, _ := cmd.Flags().GetString(flagPython)

	// read the recipe file
	cfg, err := readRecipe(configPath)
	if err != nil {
		return err
	}

	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return err
	}

	// set our working directory to the directory containing the
	// recipe file
	wd := filepath.Dir(configPath)
	_ = os.Chdir(wd)
	log.Info("updating working directory", "dir", wd)

	target := recipe.Target{Python: python, Platform: platform}

	lockFile := lockfile.Lock{
		Name:            cfg.Spec.Package.Name,
		LockfileVersion: 1,
		Packages:        map[string]lockfile.Package{},
	}

	// get the source integrity
	if cfg.Spec.Source != nil {
		log.Info("generating source checksum")
		integrity := cfg.Spec.Source.SHA256
		if integrity == "" {
			dl, err := downloader.NewDownloader(getCacheDir(cacheDir))
			if err != nil {
				return err
			}
			path, err := dl.Download(cmd.Context(), cfg.Spec.Source.URI)
			if err != nil {
				return err
			}
			integrity, err = lockfile.Sha256(path)
			if err != nil {
				return err
			}
		}
		lockFile.Packages[cfg.Spec.Source.URI] = lockfile.Package{
			Name:      cfg.Spec.Source.URI,
			Resolved:  cfg.Spec.Source.URI,
			Integrity: "sha256:" + integrity,
			Type:      v1.PackageFile,
		}
	}

	keepers, err := onlineKeepers(cmd.Context(), cfg, target)
	if err != nil {
		return err
	}

	// resolve every requirement across the configured
	// channels
	log.Info("resolving requirements")
	var reqs []v1.Requirement
	reqs = append(reqs, cfg.Spec.Requirements.Build...)
	reqs = append(reqs, cfg.Spec.Requirements.Run...)
	reqs = append(reqs, cfg.Spec.Test.Requires...)

	selected, err := target.Select(reqs)
	if err != nil {
		return err
	}

	// remember the constraint declared for each direct
	// requirement so a transitive resolution of the same
	// name cannot clobber it later. A name declared in
	// more than one list keeps every clause
	raw := map[string]string{}
	for _, req := range selected {
		prev, ok := raw[req.Name]
		switch {
		case !ok || prev == "":
			raw[req.Name] = req.Version
		case req.Version != "":
			raw[req.Name] = prev + "," + req.Version
		}
	}
	constraints := map[string]*specs.Set{}
	for name, s := range raw {
		set, err := specs.Parse(s)
		if err != nil {
			return fmt.Errorf("requirement %s: %w", name, err)
		}
		constraints[name] = set
	}

	for _, req := range selected {
		if req.Type == "" {
			req.Type = v1.PackageConda
		}
		keeper, ok := keepers[req.Type]
		if !ok {
			return fmt.Errorf("unknown package type: %s", req.Type)
		}
		packageList, err := keeper.Resolve(cmd.Context(), req)
		if err != nil {
			return err
		}
		for _, p := range packageList {
			log.V(1).Info("locked package", "name", p.Name, "version", p.Version)
			if err := mergeLocked(lockFile.Packages, p, constraints); err != nil {
				return err
			}
		}
	}

	log.Info("exporting lockfile")
	f, err := os.Create(lockfile.Name(configPath))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "\t")
	return enc.Encode(lockFile)
}

// mergeLocked adds a resolved package to the lock. When
// the name is already locked at a different version, the
// entry satisfying the recipe's declared constraint wins;
// anything else is a conflict rather than a silent
// overwrite.
func mergeLocked(locked map[string]lockfile.Package, p lockfile.Package, constraints map[string]*specs.Set) error {
	existing, ok := locked[p.Name]
	if !ok {
		locked[p.Name] = p
		return nil
	}
	if existing.Version == p.Version {
		if p.Direct && !existing.Direct {
			existing.Direct = true
			locked[p.Name] = existing
		}
		return nil
	}
	if set, ok := constraints[p.Name]; ok {
		existingOk := set.Match(existing.Version)
		incomingOk := set.Match(p.Version)
		if existingOk && !incomingOk {
			return nil
		}
		if incomingOk && !existingOk {
			locked[p.Name] = p
			return nil
		}
	}
	return fmt.Errorf("conflicting resolutions for %s: %s and %s", p.Name, existing.Version, p.Version)
}
