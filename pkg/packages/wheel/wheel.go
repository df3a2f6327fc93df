package wheel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/archiveutil"
	"github.com/djcass44/bake-your-own/pkg/lockfile"
	"github.com/djcass44/bake-your-own/pkg/specs"
	"github.com/go-logr/logr"
	"github.com/package-url/packageurl-go"
	version "github.com/knqyf263/go-deb-version"
)

func NewPackageKeeper(indexURL string) *PackageKeeper {
	return &PackageKeeper{
		indexURL: strings.TrimSuffix(indexURL, "/"),
	}
}

// Resolve looks a requirement up in the JSON API and
// returns the best wheel release matching its constraint.
// Wheels used by recipes are test-only helper libraries,
// so their own dependencies are not walked.
func (p *PackageKeeper) Resolve(ctx context.Context, req v1.Requirement) ([]lockfile.Package, error) {
	log := logr.FromContextOrDiscard(ctx)

	set, err := specs.Parse(req.Version)
	if err != nil {
		return nil, fmt.Errorf("requirement %s: %w", req.Name, err)
	}

	target := fmt.Sprintf("%s/pypi/%s/json", p.indexURL, req.Name)
	log.V(1).Info("fetching project metadata", "url", target)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	log.V(2).Info("http request completed", "code", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	var project projectInfo
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, fmt.Errorf("decoding project metadata: %w", err)
	}

	var bestVersion string
	var bestFile releaseFile
	for v, files := range project.Releases {
		if !set.Match(v) {
			continue
		}
		wheel, ok := wheelFile(files)
		if !ok {
			continue
		}
		if bestVersion == "" || lessThan(bestVersion, v) {
			bestVersion = v
			bestFile = wheel
		}
	}
	if bestVersion == "" {
		return nil, fmt.Errorf("no wheel release satisfies: %s %s", req.Name, set)
	}

	log.V(4).Info("found release match", "name", project.Info.Name, "version", bestVersion)
	return []lockfile.Package{
		{
			Name:      req.Name,
			Type:      v1.PackageWheel,
			Version:   bestVersion,
			Resolved:  bestFile.URL,
			Integrity: "sha256:" + bestFile.Digests.SHA256,
			Purl:      packageurl.NewPackageURL(packageurl.TypePyPi, "", req.Name, bestVersion, nil, "").ToString(),
			Direct:    true,
		},
	}, nil
}

func wheelFile(files []releaseFile) (releaseFile, bool) {
	for _, f := range files {
		if f.PackageType == typeWheel {
			return f, true
		}
	}
	return releaseFile{}, false
}

func lessThan(a, b string) bool {
	av, err := version.NewVersion(a)
	if err != nil {
		return true
	}
	bv, err := version.NewVersion(b)
	if err != nil {
		return false
	}
	return av.LessThan(bv)
}

// Unpack expands a wheel at the root of the prefix
// filesystem. Wheels are plain zip archives carrying
// their own package directories.
func (p *PackageKeeper) Unpack(ctx context.Context, pkg string, rootfs fs.FullFS) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("pkg", pkg)
	log.V(4).Info("unpacking wheel")

	f, err := os.Open(pkg)
	if err != nil {
		log.Error(err, "failed to open file")
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return archiveutil.Unzip(ctx, f, info.Size(), rootfs)
}
