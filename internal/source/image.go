package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// ImageSource serves image files as-is, without decoding them.
type ImageSource struct {
	paths []string
}

// NewImageSource accepts a single file or a directory. Directory entries
// are filtered by extension and sorted by name.
func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImage(entry.Name()) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths}, nil
}

func isImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) Page(index int) ([]byte, error) {
	if err := checkIndex(index, len(s.paths)); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.paths[index])
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

func (s *ImageSource) Name(index int) string {
	if index < 0 || index >= len(s.paths) {
		return ""
	}
	return filepath.Base(s.paths[index])
}

func (s *ImageSource) Close() error {
	return nil
}
