package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// DirSaver writes files into one directory
type DirSaver struct {
	dir string
	mu  sync.Mutex
}

// NewDirSaver creates a saver rooted at dir. The directory is created on
// first save.
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{dir: dir}
}

// Ensure it implements the interface
var _ ports.FileSaver = (*DirSaver)(nil)

// Dir returns the target directory
func (s *DirSaver) Dir() string {
	return s.dir
}

// Save writes data under name and returns the final path.
// Any directory part of name is dropped. When a file of that name already
// exists with the same content it is reused; otherwise a numbered name
// (badge-1.png, badge-2.png...) is chosen.
func (s *DirSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", s.dir, err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	sum := sha256.Sum256(data)

	dest := filepath.Join(s.dir, name)
	for counter := 1; ; counter++ {
		info, err := os.Stat(dest)
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", dest, err)
		}
		if !info.IsDir() && info.Size() == int64(len(data)) {
			if same, _ := hashMatches(dest, sum[:]); same {
				return dest, nil
			}
		}
		dest = filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", base, counter, ext))
	}

	// Write to a temp file first so a partial artifact never appears
	tmp, err := os.CreateTemp(s.dir, ".bx-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	return dest, nil
}

func hashMatches(path string, want []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return bytes.Equal(h.Sum(nil), want), nil
}
