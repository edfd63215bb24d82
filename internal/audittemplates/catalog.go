// Package audittemplates holds the checklist templates audits are conducted against.
package audittemplates

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"precinctwatch/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtin []byte

var ErrTemplateNotFound = errors.New("audit template not found")

type Catalog struct {
	templates []*models.AuditTemplate
	byID      map[string]*models.AuditTemplate
}

// Load returns the catalog compiled into the binary.
func Load() (*Catalog, error) {
	return Parse(builtin)
}

// Parse decodes and validates a YAML list of templates.
func Parse(data []byte) (*Catalog, error) {
	var templates []*models.AuditTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode audit templates: %w", err)
	}

	c := &Catalog{byID: make(map[string]*models.AuditTemplate, len(templates))}
	for _, t := range templates {
		if err := validate(t); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate audit template id %q", t.ID)
		}
		c.byID[t.ID] = t
		c.templates = append(c.templates, t)
	}
	sort.SliceStable(c.templates, func(i, j int) bool {
		return c.templates[i].Name < c.templates[j].Name
	})
	return c, nil
}

func validate(t *models.AuditTemplate) error {
	if t.ID == "" || t.Name == "" {
		return errors.New("audit template needs an id and a name")
	}
	if !t.Category.Valid() {
		return fmt.Errorf("audit template %q: unknown category %q", t.ID, t.Category)
	}
	seen := make(map[string]bool)
	for _, item := range t.Items() {
		if item.ID == "" {
			return fmt.Errorf("audit template %q: item without id", t.ID)
		}
		if seen[item.ID] {
			return fmt.Errorf("audit template %q: duplicate item %q", t.ID, item.ID)
		}
		seen[item.ID] = true
	}
	if len(seen) == 0 {
		return fmt.Errorf("audit template %q has no items", t.ID)
	}
	return nil
}

// Active lists active templates ordered by name.
func (c *Catalog) Active() []*models.AuditTemplate {
	out := make([]*models.AuditTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

func (c *Catalog) Get(id string) (*models.AuditTemplate, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// ForCategory returns the first active template for a store category.
func (c *Catalog) ForCategory(category models.Category) (*models.AuditTemplate, bool) {
	for _, t := range c.templates {
		if t.Active && t.Category == category {
			return t, true
		}
	}
	return nil, false
}
