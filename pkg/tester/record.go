package tester

import "strings"

// containsPackage checks a prefix package record for an
// entry of the form "name=version".
func containsPackage(record, name string) bool {
	for _, line := range strings.Split(record, "\n") {
		entry, _, _ := strings.Cut(strings.TrimSpace(line), "=")
		if entry == name {
			return true
		}
	}
	return false
}
