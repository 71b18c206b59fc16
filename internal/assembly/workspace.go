package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is the project-scoped working directory shared by all stages of
// one project: {root}/{projectId}/. Directories are created idempotently and
// never destroyed here; cleanup is an external concern. Concurrent writers
// for the same project are not coordinated by this core; at most one
// in-flight run per project is the caller's contract.
type Workspace struct {
	root string
}

func NewWorkspace(root string) Workspace {
	return Workspace{root: root}
}

// Root returns the workspace root directory.
func (w Workspace) Root() string { return w.root }

// ProjectDir returns the working directory for a project.
func (w Workspace) ProjectDir(projectID string) string {
	return filepath.Join(w.root, projectID)
}

// EnsureProjectDir creates the project directory if absent and returns it.
func (w Workspace) EnsureProjectDir(projectID string) (string, error) {
	dir := w.ProjectDir(projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create project dir %s: %w", dir, err)
	}
	return dir, nil
}

// ClipPath returns the conventional location of a scene's clip file.
func (w Workspace) ClipPath(projectID string, sceneID int) string {
	return filepath.Join(w.ProjectDir(projectID), fmt.Sprintf("clip_%d.mp4", sceneID))
}

// OutputPath returns the final render target for a project.
func (w Workspace) OutputPath(projectID string) string {
	return filepath.Join(w.ProjectDir(projectID), projectID+"_final.mp4")
}

// VoiceoverPath returns the conventional voiceover track location.
func (w Workspace) VoiceoverPath(projectID string) string {
	return filepath.Join(w.ProjectDir(projectID), projectID+"_voiceover.wav")
}

// ConcatListPath returns the location of the source enumeration file.
func (w Workspace) ConcatListPath(projectID string) string {
	return filepath.Join(w.ProjectDir(projectID), "concat_list.txt")
}

// WriteConcatList writes the line-oriented list of clip sources in the given
// order, the single source of truth for input enumeration.
func (w Workspace) WriteConcatList(projectID string, clips []string) (string, error) {
	var b strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", clip)
	}

	path := w.ConcatListPath(projectID)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write concat list %s: %w", path, err)
	}
	return path, nil
}
