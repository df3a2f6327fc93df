package wheel

type PackageKeeper struct {
	indexURL string
}

// projectInfo is the document served by a pypi-style
// JSON API at <index>/pypi/<name>/json.
type projectInfo struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type releaseFile struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	PackageType string `json:"packagetype"`
	Digests     struct {
		SHA256 string `json:"sha256"`
	} `json:"digests"`
}

const typeWheel = "bdist_wheel"
