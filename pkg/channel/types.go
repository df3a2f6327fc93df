package channel

// Repodata is the index document served by a channel at
// <channel>/<subdir>/repodata.json. Keys of Packages are
// package file names.
type Repodata struct {
	Subdir   string             `json:"subdir"`
	Packages map[string]Package `json:"packages"`
}

type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build,omitempty"`
	BuildNumber int      `json:"build_number,omitempty"`
	Depends     []string `json:"depends,omitempty"`
	SHA256      string   `json:"sha256,omitempty"`
	Size        int64    `json:"size,omitempty"`
	License     string   `json:"license,omitempty"`

	// Filename is the repodata key the package was
	// decoded from
	Filename string `json:"-"`
}
