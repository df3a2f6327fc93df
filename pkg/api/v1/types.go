package v1

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

type PackageType string

const (
	PackageConda PackageType = "Conda"
	PackageWheel PackageType = "Wheel"
	PackageFile  PackageType = "File"
)

type RecipeSpec struct {
	Package      PackageIdentity         `json:"package"`
	Source       *Source                 `json:"source,omitempty"`
	Build        Build                   `json:"build,omitempty"`
	Requirements Requirements            `json:"requirements,omitempty"`
	Test         Test                    `json:"test,omitempty"`
	Channels     map[string][]Repository `json:"channels,omitempty"`
	About        About                   `json:"about,omitempty"`
}

type PackageIdentity struct {
	Name string `json:"name"`
	// Version may contain environment template
	// variables (e.g. "${RELEASE_VERSION}")
	Version string `json:"version"`
}

type Repository struct {
	URL string `json:"url"`
}

type Source struct {
	URI    string `json:"uri"`
	SHA256 string `json:"sha256,omitempty"`
	Folder string `json:"folder,omitempty"`
}

type Build struct {
	Number int `json:"number,omitempty"`
	// Script commands are run in order inside the
	// unpacked source tree
	Script []string `json:"script,omitempty"`
	// Record is the file the build script writes the
	// installed file list to
	Record string `json:"record,omitempty"`
}

type Requirements struct {
	Build []Requirement `json:"build,omitempty"`
	Run   []Requirement `json:"run,omitempty"`
}

type Requirement struct {
	Type    PackageType `json:"type,omitempty"`
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	// When restricts the requirement to a target
	// environment (e.g. "python<3", "linux")
	When string `json:"when,omitempty"`
}

type Test struct {
	Requires []Requirement `json:"requires,omitempty"`
	Files    []string      `json:"files,omitempty"`
	Imports  []string      `json:"imports,omitempty"`
	Commands []string      `json:"commands,omitempty"`
}

type About struct {
	Home    string `json:"home,omitempty"`
	License string `json:"license,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type Recipe struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec RecipeSpec `json:"spec"`
}
