// Package tasks loads the agent's pending work from the HEARTBEAT.md
// checklist in the workspace directory. The heartbeat core only needs the
// count (zero vs. non-zero); the full list is passed through untouched to
// the agent-run callback.
package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is the checklist filename looked up in the workspace.
const DefaultFile = "HEARTBEAT.md"

// Task is one unchecked checklist item.
type Task struct {
	// Description is the item text with the checkbox marker stripped.
	Description string

	// Line is the 1-based line number in the source file.
	Line int
}

// Provider supplies the current pending task list. Load failures are
// non-fatal to the caller; the heartbeat treats them as an empty list.
type Provider interface {
	LoadTasks() ([]Task, error)
}

// FileProvider reads tasks from a markdown checklist on disk.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider for the checklist in workspaceDir.
// An empty dir means the current directory.
func NewFileProvider(workspaceDir string) *FileProvider {
	if workspaceDir == "" {
		workspaceDir = "."
	}
	return &FileProvider{path: filepath.Join(workspaceDir, DefaultFile)}
}

// Path returns the checklist file path, for watchers and logging.
func (p *FileProvider) Path() string { return p.path }

// LoadTasks parses the checklist. A missing file yields an empty list with
// no error; read failures are returned for the caller to degrade on.
func (p *FileProvider) LoadTasks() ([]Task, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", p.path, err)
	}
	return Parse(string(data)), nil
}

// Parse extracts unchecked checklist items ("- [ ] ..." or "* [ ] ...").
// Checked items and everything else are ignored.
func Parse(content string) []Task {
	var out []Task
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		var rest string
		switch {
		case strings.HasPrefix(trimmed, "- [ ]"):
			rest = trimmed[len("- [ ]"):]
		case strings.HasPrefix(trimmed, "* [ ]"):
			rest = trimmed[len("* [ ]"):]
		default:
			continue
		}

		desc := strings.TrimSpace(rest)
		if desc == "" {
			continue
		}
		out = append(out, Task{Description: desc, Line: i + 1})
	}
	return out
}
