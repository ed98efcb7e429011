package raster

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fleurfold/fleur/internal/geometry"
)

// Source provides page images by page code.
type Source interface {
	Exists(page geometry.Page) bool
	Open(page geometry.Page) (*image.Gray, error)
	// Location names where page would be read from.
	Location(page geometry.Page) string
	// Root names the collection as a whole, for diagnostics.
	Root() string
	// CopyTo writes the page, unchanged, into dir and returns the path.
	CopyTo(page geometry.Page, dir string) (string, error)
}

// Dir reads "<page>.<ext>" files from a directory.
type Dir struct {
	Path string
	Ext  string
}

// NewDir creates a directory source.
func NewDir(path, ext string) *Dir {
	return &Dir{Path: path, Ext: ext}
}

func (d *Dir) Root() string {
	return d.Path
}

func (d *Dir) Location(page geometry.Page) string {
	return filepath.Join(d.Path, string(page)+"."+d.Ext)
}

func (d *Dir) Exists(page geometry.Page) bool {
	info, err := os.Stat(d.Location(page))
	return err == nil && !info.IsDir()
}

func (d *Dir) Open(page geometry.Page) (*image.Gray, error) {
	return Decode(d.Location(page))
}

// CopyTo copies the page file byte for byte into dir and returns the path
// written.
func (d *Dir) CopyTo(page geometry.Page, dir string) (string, error) {
	src, err := os.Open(d.Location(page))
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, filepath.Base(d.Location(page)))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to copy %s: %w", page, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// IsNotExist reports whether err means a source image is absent.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Cache decodes each page at most once. It is safe for concurrent use.
type Cache struct {
	Source
	mu     sync.Mutex
	images map[geometry.Page]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	img  *image.Gray
	err  error
}

// NewCache wraps src.
func NewCache(src Source) *Cache {
	return &Cache{Source: src, images: make(map[geometry.Page]*cacheEntry)}
}

func (c *Cache) Open(page geometry.Page) (*image.Gray, error) {
	c.mu.Lock()
	e, ok := c.images[page]
	if !ok {
		e = &cacheEntry{}
		c.images[page] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.img, e.err = c.Source.Open(page)
	})
	return e.img, e.err
}

// Memory is an in-memory Source.
type Memory map[geometry.Page]*image.Gray

func (m Memory) Exists(page geometry.Page) bool {
	_, ok := m[page]
	return ok
}

func (m Memory) Open(page geometry.Page) (*image.Gray, error) {
	img, ok := m[page]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: string(page), Err: fs.ErrNotExist}
	}
	return img, nil
}

func (m Memory) Location(page geometry.Page) string {
	return "memory:" + string(page)
}

func (m Memory) Root() string {
	return "memory"
}

// CopyTo saves the page as "<page>.png" in dir.
func (m Memory) CopyTo(page geometry.Page, dir string) (string, error) {
	img, err := m.Open(page)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, string(page)+".png")
	return path, SavePNG(img, path)
}
