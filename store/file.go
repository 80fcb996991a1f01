package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/toolpanel"
)

var _ toolpanel.Store = &File{}

type image struct {
	Cells map[uint16]byte `yaml:"cells"`
}

// File keeps the cells in a yaml document so that settings survive between
// runs on a host without the board memory.
type File struct {
	mx   sync.Mutex
	path string
	img  image
}

// OpenFile loads the image at path. A missing file is an empty (erased) image.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, img: image{Cells: map[uint16]byte{}}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read store image: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f.img); err != nil {
		return nil, fmt.Errorf("could not decode store image %s: %w", path, err)
	}
	if f.img.Cells == nil {
		f.img.Cells = map[uint16]byte{}
	}
	return f, nil
}

func (f *File) Read8(addr uint16) (byte, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	if v, ok := f.img.Cells[addr]; ok {
		return v, nil
	}
	return Erased, nil
}

// Write8 updates the cell and rewrites the whole image.
func (f *File) Write8(addr uint16, value byte) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.img.Cells[addr] = value
	raw, err := yaml.Marshal(&f.img)
	if err != nil {
		return fmt.Errorf("could not encode store image: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("could not write store image: %w", err)
	}
	return nil
}
