package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog maps an order type to the ordered labels of its automatic
// checklist items. It is read-only after construction.
type Catalog struct {
	names  []string
	labels map[string][]string
}

type catalogFile struct {
	OrderTypes []struct {
		Name  string   `yaml:"name"`
		Items []string `yaml:"items"`
	} `yaml:"order_types"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse order type catalog: %w", err)
	}
	c := &Catalog{labels: make(map[string][]string, len(f.OrderTypes))}
	for _, ot := range f.OrderTypes {
		name := strings.TrimSpace(ot.Name)
		if name == "" {
			return nil, fmt.Errorf("order type catalog: entry with empty name")
		}
		if _, dup := c.labels[name]; dup {
			return nil, fmt.Errorf("order type catalog: duplicate order type %q", name)
		}
		labels := make([]string, 0, len(ot.Items))
		for _, item := range ot.Items {
			if item = strings.TrimSpace(item); item != "" {
				labels = append(labels, item)
			}
		}
		c.names = append(c.names, name)
		c.labels[name] = labels
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a catalog from path, or returns the built-in catalog
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order type catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// OrderTypes returns the catalog's order types in file order.
func (c *Catalog) OrderTypes() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether orderType is a known order type.
func (c *Catalog) Has(orderType string) bool {
	_, ok := c.labels[strings.TrimSpace(orderType)]
	return ok
}

// Labels returns the automatic item labels for orderType. Unknown order
// types have none.
func (c *Catalog) Labels(orderType string) []string {
	labels := c.labels[strings.TrimSpace(orderType)]
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}
