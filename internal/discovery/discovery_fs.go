package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemDiscovery finds extension bundles in a single directory. Every
// regular executable file is a bundle; a sidecar "<name>.yaml" next to the
// executable, if present, is carried verbatim as the bundle's config blob.
type FileSystemDiscovery struct {
	bundles []*Bundle
}

// NewFileSystemDiscovery scans rootDir once. The scan is eager so that a
// missing or unreadable directory fails at construction, not mid-load.
func NewFileSystemDiscovery(rootDir string) (*FileSystemDiscovery, error) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extension directory %q: %w", rootDir, err)
	}

	d := &FileSystemDiscovery{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
			continue
		}

		name := entry.Name()
		path := filepath.Join(rootDir, name)
		config := ""
		if raw, err := os.ReadFile(filepath.Join(rootDir, name+".yaml")); err == nil {
			config = string(raw)
		}
		d.bundles = append(d.bundles, &Bundle{Name: name, Path: path, Config: config})
	}
	return d, nil
}

func (d *FileSystemDiscovery) ListBundles(ctx context.Context) ([]*Bundle, error) {
	return append([]*Bundle(nil), d.bundles...), nil
}
