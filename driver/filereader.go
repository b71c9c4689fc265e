package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/visiona/oatbus/payload"
)

// FileReader grabs frames by reading raw, headerless pixel dumps (one
// file per frame, named so lexical sort is frame order) from a directory,
// reexpressing CameraControl.h's FileReader specialization without a
// container-format decoder dependency.
type FileReader struct {
	Dir           string
	Width, Height int
	Format        payload.PixelFormat

	files []string
	next  int
}

func (r *FileReader) Open() error {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return fmt.Errorf("driver: FileReader open %s: %w", r.Dir, err)
	}

	r.files = r.files[:0]
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		r.files = append(r.files, filepath.Join(r.Dir, e.Name()))
	}
	sort.Strings(r.files)
	r.next = 0
	return nil
}

func (r *FileReader) Grab() (Frame, error) {
	if r.next >= len(r.files) {
		return Frame{}, fmt.Errorf("driver: FileReader exhausted %s", r.Dir)
	}

	want := r.Width * r.Height * int(r.Format.BytesPerPixel())
	data, err := os.ReadFile(r.files[r.next])
	if err != nil {
		return Frame{}, err
	}
	if len(data) != want {
		return Frame{}, fmt.Errorf("driver: FileReader %s has %d bytes, want %d", r.files[r.next], len(data), want)
	}
	r.next++

	return Frame{
		Width:  r.Width,
		Height: r.Height,
		Format: r.Format,
		Pixels: data,
	}, nil
}

func (r *FileReader) Close() error {
	r.files = nil
	return nil
}
