package recipe

import (
	"fmt"
	"os"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/airutil"
	"k8s.io/apimachinery/pkg/util/yaml"
)

const Kind = "Recipe"

// Read decodes a recipe manifest from disk.
func Read(path string) (v1.Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return v1.Recipe{}, err
	}
	defer f.Close()

	var r v1.Recipe
	if err := yaml.NewYAMLOrJSONDecoder(f, 4).Decode(&r); err != nil {
		return v1.Recipe{}, fmt.Errorf("decoding recipe: %w", err)
	}
	if r.Kind != "" && r.Kind != Kind {
		return v1.Recipe{}, fmt.Errorf("unexpected kind: %s", r.Kind)
	}
	return r, nil
}

// Expand renders environment template variables in the
// fields that accept them. The recipe version is expected
// to be supplied externally (e.g. by CI), so expansion
// happens before any validation or resolution.
func Expand(r v1.Recipe) v1.Recipe {
	r.Spec.Package.Version = airutil.ExpandEnv(r.Spec.Package.Version)
	if r.Spec.Source != nil {
		src := *r.Spec.Source
		src.URI = airutil.ExpandEnv(src.URI)
		src.SHA256 = airutil.ExpandEnv(src.SHA256)
		r.Spec.Source = &src
	}
	for k, repos := range r.Spec.Channels {
		expanded := make([]v1.Repository, len(repos))
		for i := range repos {
			expanded[i] = v1.Repository{URL: airutil.ExpandEnv(repos[i].URL)}
		}
		r.Spec.Channels[k] = expanded
	}
	return r
}
