package lockfile

import (
	"fmt"
	"sort"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/specs"
	"golang.org/x/exp/maps"
)

// Validate checks that the recipe lines up with what
// we expect from the lockfile and vice versa. Transitive
// dependencies pulled in by a locked requirement are
// allowed, since the recipe only names direct ones.
func (l *Lock) Validate(cfg v1.RecipeSpec) error {
	for _, r := range requirements(cfg) {
		p, ok := l.Packages[r.Name]
		if !ok {
			return fmt.Errorf("requirement not found in lock: %s", r.Name)
		}
		// a lock that pins a version the recipe forbids is
		// corrupt, however it was produced
		if r.Version != "" && p.Version != "" {
			set, err := specs.Parse(r.Version)
			if err != nil {
				return fmt.Errorf("requirement %s: %w", r.Name, err)
			}
			if !set.Match(p.Version) {
				return fmt.Errorf("locked %s %s does not satisfy: %s", r.Name, p.Version, set)
			}
		}
	}
	if cfg.Source != nil {
		_, ok := l.Packages[cfg.Source.URI]
		if !ok {
			return fmt.Errorf("source not found in lock: %s", cfg.Source.URI)
		}
	}

	// now we do the reverse

	for k, p := range l.Packages {
		if k == "" {
			continue
		}
		if p.Type == v1.PackageFile {
			if cfg.Source == nil || cfg.Source.URI != k {
				return fmt.Errorf("source found in lock, but not recipe: %s", k)
			}
			continue
		}
		// transitive dependencies will not appear in the
		// recipe, so only direct entries are checked
		if !p.Direct {
			continue
		}
		var found bool
		for _, r := range requirements(cfg) {
			if r.Name == k {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("package found in lock, but not recipe: %s", k)
		}
	}

	return nil
}

func requirements(cfg v1.RecipeSpec) []v1.Requirement {
	out := make([]v1.Requirement, 0, len(cfg.Requirements.Build)+len(cfg.Requirements.Run)+len(cfg.Test.Requires))
	out = append(out, cfg.Requirements.Build...)
	out = append(out, cfg.Requirements.Run...)
	out = append(out, cfg.Test.Requires...)
	return out
}

// SortedKeys returns package names
// sorted alphabetically.
func (l *Lock) SortedKeys() []string {
	pkgKeys := maps.Keys(l.Packages)
	sort.Strings(pkgKeys)
	return pkgKeys
}
