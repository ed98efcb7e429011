// Package manifest records the files a run produced together with their
// content hashes, so two builds can be compared without opening images.
package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// FileName is the manifest's name inside the build directory.
const FileName = "manifest.json"

// Entry describes one output file.
type Entry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash string `json:"xxh3"`
}

// Manifest lists output files sorted by name.
type Manifest struct {
	Files []Entry `json:"files"`
}

// Build hashes files. Names are recorded relative to dir.
func Build(dir string, files []string) (*Manifest, error) {
	m := &Manifest{Files: make([]Entry, 0, len(files))}
	for _, path := range files {
		e, err := entry(dir, path)
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, e)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Name < m.Files[j].Name })
	return m, nil
}

func entry(dir, path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxh3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	name, err := filepath.Rel(dir, path)
	if err != nil {
		name = filepath.Base(path)
	}
	return Entry{
		Name: filepath.ToSlash(name),
		Size: n,
		Hash: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

// Lookup finds the entry for name.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	i := sort.Search(len(m.Files), func(i int) bool { return m.Files[i].Name >= name })
	if i < len(m.Files) && m.Files[i].Name == name {
		return m.Files[i], true
	}
	return Entry{}, false
}

// Write builds the manifest for files and saves it as FileName in dir.
func Write(dir string, files []string) (string, error) {
	m, err := Build(dir, files)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Read loads a manifest file.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
