package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/specs"
	"github.com/go-logr/logr"
	"github.com/package-url/packageurl-go"
	version "github.com/knqyf263/go-deb-version"
)

type Index struct {
	packages map[string][]Package
	source   string
	subdir   string
}

// NewIndex downloads and decodes the repodata for a
// single channel.
func NewIndex(ctx context.Context, channelURL, subdir string) (*Index, error) {
	log := logr.FromContextOrDiscard(ctx)

	target := fmt.Sprintf("%s/%s/repodata.json", strings.TrimSuffix(channelURL, "/"), subdir)
	log.V(1).Info("fetching channel index", "url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	log.V(2).Info("http request completed", "code", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}
	return NewIndexFromReader(ctx, resp.Body, channelURL)
}

// NewIndexFromReader decodes repodata from an arbitrary
// reader. Used directly by tests and file-based channels.
func NewIndexFromReader(ctx context.Context, r io.Reader, source string) (*Index, error) {
	log := logr.FromContextOrDiscard(ctx)

	var data Repodata
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding repodata: %w", err)
	}

	packages := map[string][]Package{}
	for filename, p := range data.Packages {
		p.Filename = filename
		packages[p.Name] = append(packages[p.Name], p)
	}

	log.V(1).Info("successfully decoded index", "count", len(data.Packages), "source", source)
	return &Index{
		packages: packages,
		source:   strings.TrimSuffix(source, "/"),
		subdir:   data.Subdir,
	}, nil
}

func (idx *Index) Count() int {
	n := 0
	for _, v := range idx.packages {
		n += len(v)
	}
	return n
}

func (idx *Index) Source() string {
	return idx.source
}

// Resolve finds the best candidate for a requirement and
// walks its dependency entries, returning the whole set as
// lockfile packages. The requested package is marked as a
// direct dependency.
func (idx *Index) Resolve(ctx context.Context, name string, set *specs.Set) ([]lockfile.Package, error) {
	existing := map[string]Package{}
	if err := idx.resolve(ctx, existing, name, set); err != nil {
		return nil, err
	}

	out := make([]lockfile.Package, 0, len(existing))
	for _, p := range existing {
		out = append(out, lockfile.Package{
			Name:      p.Name,
			Type:      v1.PackageConda,
			Version:   p.Version,
			Resolved:  fmt.Sprintf("%s/%s/%s", idx.source, idx.subdir, p.Filename),
			Integrity: "sha256:" + p.SHA256,
			Purl:      purl(p),
			Direct:    p.Name == name,
		})
	}
	return out, nil
}

func (idx *Index) resolve(ctx context.Context, existing map[string]Package, name string, set *specs.Set) error {
	log := logr.FromContextOrDiscard(ctx)
	if _, ok := existing[name]; ok {
		return nil
	}

	best, ok := idx.best(name, set)
	if !ok {
		return fmt.Errorf("no package in %s satisfies: %s %s", idx.source, name, set)
	}
	log.V(4).Info("found package match", "name", best.Name, "version", best.Version, "deps", len(best.Depends))
	existing[name] = best

	for _, dep := range best.Depends {
		depName, depSet, err := ParseDepends(dep)
		if err != nil {
			return err
		}
		if err := idx.resolve(ctx, existing, depName, depSet); err != nil {
			return err
		}
	}
	return nil
}

// best returns the highest version (then highest build
// number) candidate matching the constraint set.
func (idx *Index) best(name string, set *specs.Set) (Package, bool) {
	var best Package
	var found bool
	for _, p := range idx.packages[name] {
		if !set.Match(p.Version) {
			continue
		}
		if !found || less(best, p) {
			best = p
			found = true
		}
	}
	return best, found
}

func less(a, b Package) bool {
	av, err := version.NewVersion(a.Version)
	if err != nil {
		return true
	}
	bv, err := version.NewVersion(b.Version)
	if err != nil {
		return false
	}
	if av.Equal(bv) {
		return a.BuildNumber < b.BuildNumber
	}
	return av.LessThan(bv)
}

// ParseDepends splits a repodata dependency entry of the
// form "name" or "name constraint" (e.g. "numpy >=1.10,<=1.14").
func ParseDepends(s string) (string, *specs.Set, error) {
	name, constraint, _ := strings.Cut(strings.TrimSpace(s), " ")
	set, err := specs.Parse(constraint)
	if err != nil {
		return "", nil, fmt.Errorf("dependency %q: %w", s, err)
	}
	return name, set, nil
}

func purl(p Package) string {
	return packageurl.NewPackageURL(packageurl.TypeConda, "", p.Name, p.Version, nil, "").ToString()
}
