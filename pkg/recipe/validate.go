package recipe

import (
	"fmt"
	"regexp"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/specs"
)

var regexpPackageName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
var regexpSha256 = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Validate checks a recipe for structural problems
// before any work is done with it. It expects template
// variables to have already been expanded.
func Validate(r v1.Recipe) error {
	if !regexpPackageName.MatchString(r.Spec.Package.Name) {
		return fmt.Errorf("invalid package name: %q", r.Spec.Package.Name)
	}
	if r.Spec.Package.Version == "" {
		return fmt.Errorf("package version is empty (is the template variable set?)")
	}
	if r.Spec.Source != nil {
		if r.Spec.Source.URI == "" {
			return fmt.Errorf("source is declared but has no uri")
		}
		if r.Spec.Source.SHA256 != "" && !regexpSha256.MatchString(r.Spec.Source.SHA256) {
			return fmt.Errorf("malformed source sha256: %q", r.Spec.Source.SHA256)
		}
	}
	for _, set := range map[string][]v1.Requirement{
		"build":         r.Spec.Requirements.Build,
		"run":           r.Spec.Requirements.Run,
		"test.requires": r.Spec.Test.Requires,
	} {
		if err := validateRequirements(set); err != nil {
			return err
		}
	}
	return nil
}

func validateRequirements(reqs []v1.Requirement) error {
	seen := map[string]bool{}
	for _, r := range reqs {
		if !regexpPackageName.MatchString(r.Name) {
			return fmt.Errorf("invalid requirement name: %q", r.Name)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate requirement: %s", r.Name)
		}
		seen[r.Name] = true
		// every constraint string must parse, even if the
		// requirement is later filtered out by its selector
		if _, err := specs.Parse(r.Version); err != nil {
			return fmt.Errorf("requirement %s: %w", r.Name, err)
		}
		switch r.Type {
		case "", v1.PackageConda, v1.PackageWheel:
		default:
			return fmt.Errorf("requirement %s: unknown package type: %s", r.Name, r.Type)
		}
	}
	return nil
}
