package chat

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

// Catalog maps category keys to the labels shown to users.
type Catalog struct {
	labels map[domain.Category]string
}

type catalogFile struct {
	Categories map[string]string `yaml:"categories"`
}

// DefaultCatalog returns the built-in labels.
func DefaultCatalog() *Catalog {
	return &Catalog{labels: map[domain.Category]string{
		domain.CategoryElectronics: "📱 Electronics",
		domain.CategoryFood:        "🍕 Food",
		domain.CategoryClothing:    "👕 Clothing",
		domain.CategoryOther:       "🔧 Other",
	}}
}

// LoadCatalog reads label overrides from a YAML file. Keys missing from the file keep their
// default label; unknown keys are rejected. An empty path yields the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := map[string]domain.Category{}
	for key, label := range file.Categories {
		category := domain.Category(key)
		if !category.Valid() {
			return nil, fmt.Errorf("catalog: unknown category %q", key)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if other, dup := seen[label]; dup {
			return nil, fmt.Errorf("catalog: label %q used by %s and %s", label, other, category)
		}
		seen[label] = category
		catalog.labels[category] = label
	}
	return catalog, nil
}

// Label returns the display label of c.
func (c *Catalog) Label(category domain.Category) string {
	if label, ok := c.labels[category]; ok {
		return label
	}
	return "Unknown"
}

// Labels returns labels in category display order.
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.labels))
	for _, category := range domain.Categories() {
		labels = append(labels, c.Label(category))
	}
	return labels
}

// Resolve matches user input against labels exactly, then against keys.
func (c *Catalog) Resolve(input string) (domain.Category, bool) {
	input = strings.TrimSpace(input)
	for _, category := range domain.Categories() {
		if c.labels[category] == input {
			return category, true
		}
	}
	category := domain.Category(input)
	return category, category.Valid()
}
