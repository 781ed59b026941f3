// Package state keeps the runtime files under .mrequires: the build status,
// the single-instance lock and the startup banner.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const statusFileName = "status.json"

const (
	StatusIdle     = "idle"
	StatusBuilding = "building"
)

// Status represents the current build status
type Status struct {
	Status    string     `json:"status"`          // "idle" | "building"
	Since     *time.Time `json:"since,omitempty"` // when the build started
	LastError string     `json:"last_error,omitempty"`
}

// SetStatus writes status to .mrequires/status.json. lastErr is the error
// of the build that just finished, if any.
func SetStatus(stateDir, status string, lastErr error) error {
	path := filepath.Join(stateDir, statusFileName)

	s := Status{Status: status}
	if status == StatusBuilding {
		now := time.Now()
		s.Since = &now
	}
	if lastErr != nil {
		s.LastError = lastErr.Error()
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetStatus reads status from .mrequires/status.json
// Returns "idle" if file doesn't exist or is invalid
func GetStatus(stateDir string) Status {
	path := filepath.Join(stateDir, statusFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return Status{Status: StatusIdle}
	}

	var s Status
	if err := json.Unmarshal(data, &s); err != nil || s.Status == "" {
		return Status{Status: StatusIdle}
	}

	return s
}

// Init creates stateDir with a .gitignore for the runtime files.
func Init(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}
	gitignoreFile := filepath.Join(stateDir, ".gitignore")
	if _, err := os.Stat(gitignoreFile); os.IsNotExist(err) {
		content := `# Runtime files - do not commit
` + lockFileName + `
` + statusFileName + `
.history
`
		if err := os.WriteFile(gitignoreFile, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}
