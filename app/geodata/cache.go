package geodata

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Cache holds the place definitions loaded from the places directory.
// Definitions are read once at startup; lookups are concurrent-safe.
type Cache struct {
	placesDir string
	cache     map[string]*PlaceDefinition
	mu        sync.RWMutex
}

func NewCache(placesDir string) *Cache {
	return &Cache{
		placesDir: placesDir,
		cache:     make(map[string]*PlaceDefinition),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.placesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.placesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	yamlFiles, err := filepath.Glob(filepath.Join(c.placesDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		slug := slugFromFilename(file)

		definition, err := c.LoadDefinition(slug, file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Place definition loaded", "place", slug, "name", definition.Name, "country", definition.Country)
	}

	return nil
}

func (c *Cache) LoadDefinition(slug, path string) (*PlaceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var definition PlaceDefinition
	if err := yaml.Unmarshal(data, &definition); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	definition.Slug = slug

	if err := validateDefinition(&definition); err != nil {
		return nil, fmt.Errorf("invalid place definition %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[slug] = &definition

	return &definition, nil
}

func (c *Cache) GetDefinition(slug string) (*PlaceDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	definition, ok := c.cache[slug]
	if !ok {
		return nil, fmt.Errorf("place definition with slug '%s' not found", slug)
	}

	return definition, nil
}

func (c *Cache) GetDefinitions() []*PlaceDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	definitions := make([]*PlaceDefinition, 0, len(c.cache))
	for _, definition := range c.cache {
		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Slug < definitions[j].Slug
	})

	return definitions
}

func (c *Cache) GetDefinitionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func slugFromFilename(path string) string {
	fileName := filepath.Base(path)
	return strings.TrimSuffix(strings.TrimSuffix(fileName, ".yaml"), ".yml")
}

func validateDefinition(definition *PlaceDefinition) error {
	if definition.Name == "" {
		return fmt.Errorf("place name is required")
	}
	if definition.Country == "" {
		return fmt.Errorf("place country is required")
	}
	return nil
}
