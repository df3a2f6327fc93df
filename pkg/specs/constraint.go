package specs

import (
	"fmt"
	"regexp"
	"strings"

	version "github.com/knqyf263/go-deb-version"
)

type Op string

const (
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpGreaterEqual Op = ">="
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpLess         Op = "<"
	OpWildcard     Op = "=*"
)

// operator order matters: two-character operators
// must be tried before their one-character prefixes
var operators = []Op{OpEqual, OpNotEqual, OpGreaterEqual, OpLessEqual, OpGreater, OpLess}

var regexpVersion = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+!-]*$`)

type Clause struct {
	Op      Op
	Version string
}

// Set is a parsed version-constraint string. A version
// matches the set when it matches every clause.
type Set struct {
	raw     string
	clauses []Clause
}

// Parse parses a comma-separated constraint string in the
// conda/pip style, e.g. ">=1.10,<=1.14", "==28.8.0", "1.1.*"
// or a bare version. An empty string parses to a set that
// matches any version.
func Parse(s string) (*Set, error) {
	set := &Set{raw: s}
	s = strings.TrimSpace(s)
	if s == "" {
		return set, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty clause in constraint: %q", s)
		}
		clause, err := parseClause(part)
		if err != nil {
			return nil, err
		}
		set.clauses = append(set.clauses, clause)
	}
	return set, nil
}

func parseClause(s string) (Clause, error) {
	for _, op := range operators {
		if strings.HasPrefix(s, string(op)) {
			v := strings.TrimSpace(strings.TrimPrefix(s, string(op)))
			if err := checkVersion(v); err != nil {
				return Clause{}, err
			}
			return Clause{Op: op, Version: v}, nil
		}
	}
	// trailing ".*" means prefix match
	if prefix, ok := strings.CutSuffix(s, ".*"); ok {
		if err := checkVersion(prefix); err != nil {
			return Clause{}, err
		}
		return Clause{Op: OpWildcard, Version: prefix}, nil
	}
	// a bare version is an exact match
	if err := checkVersion(s); err != nil {
		return Clause{}, err
	}
	return Clause{Op: OpEqual, Version: s}, nil
}

func checkVersion(s string) error {
	if s == "" {
		return fmt.Errorf("constraint clause is missing a version")
	}
	if !regexpVersion.MatchString(s) {
		return fmt.Errorf("malformed version in constraint clause: %q", s)
	}
	if _, err := version.NewVersion(s); err != nil {
		return fmt.Errorf("parsing version %q: %w", s, err)
	}
	return nil
}

// Match reports whether the given version satisfies
// every clause in the set.
func (s *Set) Match(v string) bool {
	if len(s.clauses) == 0 {
		return true
	}
	found, err := version.NewVersion(v)
	if err != nil {
		return false
	}
	for _, c := range s.clauses {
		if c.Op == OpWildcard {
			if v != c.Version && !strings.HasPrefix(v, c.Version+".") {
				return false
			}
			continue
		}
		want, err := version.NewVersion(c.Version)
		if err != nil {
			return false
		}
		var ok bool
		switch c.Op {
		case OpEqual:
			ok = found.Equal(want)
		case OpNotEqual:
			ok = !found.Equal(want)
		case OpGreaterEqual:
			ok = found.GreaterThan(want) || found.Equal(want)
		case OpLessEqual:
			ok = found.LessThan(want) || found.Equal(want)
		case OpGreater:
			ok = found.GreaterThan(want)
		case OpLess:
			ok = found.LessThan(want)
		}
		if !ok {
			return false
		}
	}
	return true
}

// Empty reports whether the set matches any version.
func (s *Set) Empty() bool {
	return len(s.clauses) == 0
}

func (s *Set) String() string {
	return s.raw
}
