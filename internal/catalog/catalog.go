// Package catalog holds the store registry and category taxonomy used to
// match upstream merchants and classify item names.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Other is returned by the classifier when no category keyword matches.
const Other = "other"

// Taxonomy lists every category a deal may carry, in display order.
var Taxonomy = []string{
	"produce", "meat", "dairy", "pantry", "frozen",
	"bakery", "beverages", "snacks", "household", Other,
}

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is the parsed registry file. Declaration order is matching order.
type Catalog struct {
	Stores     []StoreEntry    `yaml:"stores"`
	Categories []CategoryEntry `yaml:"categories"`
}

// StoreEntry describes one canonical retailer and the keywords that
// identify it inside a merchant name.
type StoreEntry struct {
	Slug     string   `yaml:"slug"`
	Name     string   `yaml:"name"`
	LogoURL  string   `yaml:"logo_url"`
	Website  string   `yaml:"website"`
	Keywords []string `yaml:"keywords"`
}

// CategoryEntry maps a taxonomy value to its keywords.
type CategoryEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path loads the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes, defaults and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	c.setDefaults()

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Matcher builds a store matcher over the registry.
func (c *Catalog) Matcher() *Matcher {
	return NewMatcher(c.Stores)
}

// Classifier builds a category classifier over the taxonomy.
func (c *Catalog) Classifier() *Classifier {
	return NewClassifier(c.Categories)
}

// Store returns the entry for slug.
func (c *Catalog) Store(slug string) (StoreEntry, bool) {
	for _, s := range c.Stores {
		if s.Slug == slug {
			return s, true
		}
	}
	return StoreEntry{}, false
}

func (c *Catalog) setDefaults() {
	for i := range c.Stores {
		s := &c.Stores[i]
		s.Slug = strings.TrimSpace(s.Slug)
		if s.Name == "" {
			s.Name = s.Slug
		}
		if s.LogoURL == "" {
			s.LogoURL = "/stores/" + s.Slug + ".svg"
		}
		if len(s.Keywords) == 0 {
			s.Keywords = []string{s.Slug}
		}
	}
	for i := range c.Categories {
		c.Categories[i].Name = strings.ToLower(strings.TrimSpace(c.Categories[i].Name))
	}
}

func (c *Catalog) validate() error {
	if len(c.Stores) == 0 {
		return fmt.Errorf("catalog must declare at least one store")
	}

	slugs := make(map[string]bool, len(c.Stores))
	for i, s := range c.Stores {
		if s.Slug == "" {
			return fmt.Errorf("store at index %d has no slug", i)
		}
		if slugs[s.Slug] {
			return fmt.Errorf("duplicate store slug: %s", s.Slug)
		}
		slugs[s.Slug] = true
		for _, kw := range s.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("store %s has an empty keyword", s.Slug)
			}
		}
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if !IsCategory(cat.Name) || cat.Name == Other {
			return fmt.Errorf("invalid category at index %d: %q", i, cat.Name)
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category: %s", cat.Name)
		}
		seen[cat.Name] = true
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("category %s must have at least one keyword", cat.Name)
		}
	}

	return nil
}

// IsCategory reports whether name is a taxonomy value.
func IsCategory(name string) bool {
	for _, t := range Taxonomy {
		if t == name {
			return true
		}
	}
	return false
}
