package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chainguard.dev/apko/pkg/apk/fs"
	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/go-logr/logr"
)

const (
	infoIndex = "info/index.json"
	infoFiles = "info/files"
)

// Info is the metadata embedded in a built artifact.
type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	BuildNumber int      `json:"build_number"`
	Depends     []string `json:"depends,omitempty"`
	License     string   `json:"license,omitempty"`
	Home        string   `json:"home,omitempty"`
}

func newInfo(spec v1.RecipeSpec, run []v1.Requirement) Info {
	depends := make([]string, 0, len(run))
	for _, r := range run {
		depends = append(depends, strings.TrimSpace(fmt.Sprintf("%s %s", r.Name, r.Version)))
	}
	return Info{
		Name:        spec.Package.Name,
		Version:     spec.Package.Version,
		BuildNumber: spec.Build.Number,
		Depends:     depends,
		License:     spec.About.License,
		Home:        spec.About.Home,
	}
}

// writeInfo records artifact metadata and the installed
// file list inside the artifact tree.
func writeInfo(ctx context.Context, artifact fs.FullFS, info Info, files []string) error {
	log := logr.FromContextOrDiscard(ctx)
	log.V(2).Info("writing artifact metadata", "name", info.Name, "version", info.Version, "files", len(files))

	if err := artifact.MkdirAll("info", 0755); err != nil {
		return fmt.Errorf("creating info directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "\t")
	if err != nil {
		return err
	}
	if err := artifact.WriteFile(infoIndex, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", infoIndex, err)
	}

	if err := artifact.WriteFile(infoFiles, []byte(strings.Join(files, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", infoFiles, err)
	}
	return nil
}
