package assembly

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspace_Paths(t *testing.T) {
	ws := NewWorkspace("/tmp/docuforge")

	tests := []struct {
		got  string
		want string
	}{
		{ws.ProjectDir("p1"), "/tmp/docuforge/p1"},
		{ws.ClipPath("p1", 7), "/tmp/docuforge/p1/clip_7.mp4"},
		{ws.OutputPath("p1"), "/tmp/docuforge/p1/p1_final.mp4"},
		{ws.VoiceoverPath("p1"), "/tmp/docuforge/p1/p1_voiceover.wav"},
		{ws.ConcatListPath("p1"), "/tmp/docuforge/p1/concat_list.txt"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestWorkspace_EnsureProjectDirIdempotent(t *testing.T) {
	ws := NewWorkspace(t.TempDir())

	first, err := ws.EnsureProjectDir("p1")
	if err != nil {
		t.Fatalf("EnsureProjectDir() error = %v", err)
	}
	second, err := ws.EnsureProjectDir("p1")
	if err != nil {
		t.Fatalf("EnsureProjectDir() second call error = %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}

	fi, err := os.Stat(first)
	if err != nil || !fi.IsDir() {
		t.Fatalf("project dir not created: %v", err)
	}
}

func TestWorkspace_WriteConcatList(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	if _, err := ws.EnsureProjectDir("p1"); err != nil {
		t.Fatal(err)
	}

	path, err := ws.WriteConcatList("p1", []string{"/a/clip_1.mp4", "/a/clip_2.mp4"})
	if err != nil {
		t.Fatalf("WriteConcatList() error = %v", err)
	}
	if filepath.Base(path) != "concat_list.txt" {
		t.Errorf("path = %q, want concat_list.txt", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "file '/a/clip_1.mp4'\nfile '/a/clip_2.mp4'\n"
	if string(data) != want {
		t.Errorf("concat list = %q, want %q", string(data), want)
	}

	// Rewriting replaces the enumeration, preserving the new ordering.
	if _, err := ws.WriteConcatList("p1", []string{"/a/clip_2.mp4"}); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "clip_1") {
		t.Error("stale entries left in rewritten concat list")
	}
}
