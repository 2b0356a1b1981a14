package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSurfaceMessage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"invalid id: bad-url", InvalidURLMessage},
		{"prefix invalid id suffix", InvalidURLMessage},
		{"Invalid ID", "Invalid ID"},
		{"quota exceeded", "quota exceeded"},
		{"", FallbackMessage},
	}
	for _, test := range tests {
		if got := SurfaceMessage(test.in); got != test.want {
			t.Errorf("SurfaceMessage(%q) = %q, expected %q", test.in, got, test.want)
		}
	}
}

func TestDirSaverNeverOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewDirSaver(dir)

	first, err := s.Save("song.mp3", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := s.Save("song.mp3", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if filepath.Base(first) != "song.mp3" {
		t.Errorf("Expected first file 'song.mp3', got %q", filepath.Base(first))
	}
	if filepath.Base(second) != "song (1).mp3" {
		t.Errorf("Expected second file 'song (1).mp3', got %q", filepath.Base(second))
	}

	b, _ := os.ReadFile(first)
	if string(b) != "one" {
		t.Errorf("First file was overwritten: %q", b)
	}
}

func TestDirSaverSanitizesName(t *testing.T) {
	dir := t.TempDir()
	p, err := NewDirSaver(dir).Save("../escape.mp3", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Dir(p) != dir {
		t.Errorf("Expected file inside %s, got %s", dir, p)
	}
}
