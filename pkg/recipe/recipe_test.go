package recipe

import (
	"os"
	"path/filepath"
	"testing"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecipe = `apiVersion: byo.dcas.dev/v1
kind: Recipe
metadata:
  name: menpo
spec:
  package:
    name: menpo
    version: ${BYO_TEST_VERSION}
  source:
    uri: https://github.com/menpo/menpo/archive/v${BYO_TEST_VERSION}.tar.gz
  build:
    number: 0
    script:
      - python setup.py install --single-version-externally-managed --record=record.txt
    record: record.txt
  requirements:
    build:
      - name: python
      - name: setuptools
        version: ==28.8.0
      - name: numpy
        version: ">=1.10,<=1.14"
      - name: cython
        version: ">=0.23"
    run:
      - name: python
      - name: pathlib
        version: ==1.0
        when: python<3
      - name: numpy
        version: ">=1.10,<=1.14"
      - name: scipy
        version: ">=0.16"
      - name: matplotlib
        version: ">=1.4"
  test:
    requires:
      - name: coverage
    files:
      - .coveragerc
    imports:
      - menpo
    commands:
      - nosetests menpo -v --with-coverage --cover-package=menpo
  about:
    home: https://github.com/menpo/menpo
    license: BSD
`

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRecipe), 0644))

	r, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "menpo", r.Spec.Package.Name)
	assert.Equal(t, "${BYO_TEST_VERSION}", r.Spec.Package.Version)
	assert.Len(t, r.Spec.Requirements.Build, 4)
	assert.Len(t, r.Spec.Requirements.Run, 5)
	assert.Equal(t, []string{"menpo"}, r.Spec.Test.Imports)
	assert.Equal(t, "BSD", r.Spec.About.License)
}

func TestRead_rejectsOtherKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: Pod"), 0644))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	t.Setenv("BYO_TEST_VERSION", "0.8.1")

	path := filepath.Join(t.TempDir(), "recipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRecipe), 0644))

	r, err := Read(path)
	require.NoError(t, err)

	r = Expand(r)
	assert.Equal(t, "0.8.1", r.Spec.Package.Version)
	assert.Equal(t, "https://github.com/menpo/menpo/archive/v0.8.1.tar.gz", r.Spec.Source.URI)
}

func TestValidate(t *testing.T) {
	base := func() v1.Recipe {
		return v1.Recipe{
			Spec: v1.RecipeSpec{
				Package: v1.PackageIdentity{
					Name:    "menpo",
					Version: "0.8.1",
				},
				Requirements: v1.Requirements{
					Build: []v1.Requirement{
						{Name: "numpy", Version: ">=1.10,<=1.14"},
					},
				},
			},
		}
	}

	var cases = []struct {
		name   string
		mutate func(r *v1.Recipe)
		ok     bool
	}{
		{
			name:   "valid recipe",
			mutate: func(r *v1.Recipe) {},
			ok:     true,
		},
		{
			name: "empty version",
			mutate: func(r *v1.Recipe) {
				r.Spec.Package.Version = ""
			},
		},
		{
			name: "uppercase package name",
			mutate: func(r *v1.Recipe) {
				r.Spec.Package.Name = "Menpo"
			},
		},
		{
			name: "malformed constraint",
			mutate: func(r *v1.Recipe) {
				r.Spec.Requirements.Build[0].Version = ">>1.0"
			},
		},
		{
			name: "duplicate requirement",
			mutate: func(r *v1.Recipe) {
				r.Spec.Requirements.Build = append(r.Spec.Requirements.Build, v1.Requirement{Name: "numpy"})
			},
		},
		{
			name: "unknown requirement type",
			mutate: func(r *v1.Recipe) {
				r.Spec.Requirements.Build[0].Type = "RPM"
			},
		},
		{
			name: "malformed source sha",
			mutate: func(r *v1.Recipe) {
				r.Spec.Source = &v1.Source{URI: "https://example.org/src.tar.gz", SHA256: "zzz"}
			},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(&r)
			err := Validate(r)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}
