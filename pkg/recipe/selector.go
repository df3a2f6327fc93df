package recipe

import (
	"fmt"
	"strings"

	v1 "github.com/djcass44/bake-your-own/pkg/api/v1"
	"github.com/djcass44/bake-your-own/pkg/specs"
)

// Target describes the environment a recipe is being
// built or tested for.
type Target struct {
	// Python is the interpreter version (e.g. "3.6")
	Python string
	// Platform is the operating system (e.g. "linux")
	Platform string
}

const selectorPython = "python"

// Matches evaluates a requirement selector against the
// target. An empty selector always matches. Supported
// forms are a bare platform name ("linux") and an
// interpreter comparison ("python<3", "python>=3.6").
func (t Target) Matches(when string) (bool, error) {
	when = strings.TrimSpace(when)
	if when == "" {
		return true, nil
	}
	if rest, ok := strings.CutPrefix(when, selectorPython); ok && rest != "" {
		set, err := specs.Parse(rest)
		if err != nil {
			return false, fmt.Errorf("parsing selector %q: %w", when, err)
		}
		return set.Match(t.Python), nil
	}
	if strings.ContainsAny(when, "<>=!") {
		return false, fmt.Errorf("malformed selector: %q", when)
	}
	return strings.EqualFold(when, t.Platform), nil
}

// Select filters a requirement list down to the entries
// whose selectors match the target.
func (t Target) Select(reqs []v1.Requirement) ([]v1.Requirement, error) {
	out := make([]v1.Requirement, 0, len(reqs))
	for _, r := range reqs {
		ok, err := t.Matches(r.When)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
