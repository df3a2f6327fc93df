package builder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultRecord = "record.txt"

// readRecord parses the installed-files manifest the
// build script was asked to write (one path per line).
func readRecord(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening record: %w", err)
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		files = append(files, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("record %s is empty", path)
	}
	return files, nil
}

// containsImport checks that the installed file set
// actually provides the declared import name, i.e. that
// some installed path has a path segment matching it.
func containsImport(files []string, name string) bool {
	for _, f := range files {
		for _, segment := range strings.Split(filepath.ToSlash(f), "/") {
			if segment == name || segment == name+".py" {
				return true
			}
		}
	}
	return false
}
