// Package cache manages the per-state directory of fetched source
// artifacts, the hand-off point between the fetch and load stages.
package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Cache struct {
	dir string
}

// New returns the cache rooted at <root>/us/<state>/cache.
func New(root, state string) *Cache {
	return &Cache{dir: filepath.Join(root, "us", strings.ToLower(state), "cache")}
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Ensure creates the cache directory if needed.
func (c *Cache) Ensure() error {
	return os.MkdirAll(c.dir, 0755)
}

// Abs returns the absolute path of a cached artifact.
func (c *Cache) Abs(name string) string {
	return filepath.Join(c.dir, name)
}

// Exists reports whether an artifact is already cached.
func (c *Cache) Exists(name string) bool {
	_, err := os.Stat(c.Abs(name))
	return err == nil
}

// List returns the cached filenames whose name contains datefilter,
// sorted. An empty datefilter lists everything.
func (c *Cache) List(datefilter string) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if datefilter != "" && !strings.Contains(e.Name(), datefilter) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Forget removes a cached artifact, directories included.
func (c *Cache) Forget(name string) error {
	return os.RemoveAll(c.Abs(name))
}

// Clear removes every artifact matching datefilter.
func (c *Cache) Clear(datefilter string) (int, error) {
	names, err := c.List(datefilter)
	if err != nil {
		return 0, err
	}
	for i, name := range names {
		if err := c.Forget(name); err != nil {
			return i, err
		}
	}
	return len(names), nil
}
