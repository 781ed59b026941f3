package config

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LoadGitignore reads dir/.gitignore and returns its patterns in the form
// the watcher understands. Comments, blank lines and negations are skipped;
// leading and trailing slashes are dropped. A missing file yields nil.
func LoadGitignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.Trim(line, "/")
		if line != "" {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}

// MergeGitignore appends .gitignore patterns from dir that are not already
// in Watch.IgnorePatterns.
func (c *Config) MergeGitignore(dir string) error {
	patterns, err := LoadGitignore(dir)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Watch.IgnorePatterns))
	for _, p := range c.Watch.IgnorePatterns {
		seen[p] = struct{}{}
	}
	for _, p := range patterns {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		c.Watch.IgnorePatterns = append(c.Watch.IgnorePatterns, p)
	}
	return nil
}
