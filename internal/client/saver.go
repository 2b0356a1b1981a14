package client

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"musicbridge/pkg/validator"
)

// Saver receives a finished download. It is called at most once per
// successful submission and must consume r before returning.
type Saver interface {
	Save(name string, r io.Reader) (string, error)
}

// SaverFunc adapts a function to the Saver interface
type SaverFunc func(name string, r io.Reader) (string, error)

// Save calls f(name, r)
func (f SaverFunc) Save(name string, r io.Reader) (string, error) {
	return f(name, r)
}

// DirSaver writes downloads into a directory without overwriting existing
// files: "song.mp3" becomes "song (1).mp3" when the name is taken.
type DirSaver struct {
	Dir string
}

// NewDirSaver creates a saver writing into dir
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{Dir: dir}
}

const maxSaveAttempts = 1000

// Save writes r to a fresh file in the directory and returns its path
func (s *DirSaver) Save(name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create save dir: %w", err)
	}

	name = validator.TruncateFilename(validator.SanitizeFilename(name), 200)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxSaveAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(s.Dir, candidate)

		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", p, err)
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(p)
			return "", fmt.Errorf("write %s: %w", p, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(p)
			return "", fmt.Errorf("close %s: %w", p, err)
		}
		return p, nil
	}
	return "", fmt.Errorf("no free file name for %q in %s", name, s.Dir)
}
