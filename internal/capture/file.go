package capture

import (
	"io"
	"os"
)

// FileSource reads lines from a file, or from stdin when the path is "-"
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path once
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source
func (s *FileSource) Name() string {
	return "file://" + s.path
}

// Run implements Source. It returns at end of file. Overlong lines are
// skipped and reading continues.
func (s *FileSource) Run(stop <-chan struct{}, emit func([]byte) bool) error {
	var r io.Reader = os.Stdin
	if s.path != "-" {
		f, err := os.Open(s.path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var lines lineBuffer
	buf := make([]byte, 4096)
	for {
		if stopped(stop) {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 && !lines.feed(buf[:n], emit) {
			return nil
		}
		if err == io.EOF {
			lines.flush(emit)
			return nil
		}
		if err != nil {
			return err
		}
	}
}
