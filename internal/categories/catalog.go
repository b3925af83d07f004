package categories

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultYAML []byte

type Group struct {
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

// Catalog is the fixed topic list, optionally grouped under parent groups.
type Catalog struct {
	AllLabel string  `yaml:"all_label"`
	Groups   []Group `yaml:"groups"`

	topics  []string
	byGroup map[string]map[string]struct{}
}

// Parse reads a catalog definition.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	if len(c.Groups) == 0 {
		return nil, errors.New("categories: no groups defined")
	}
	if c.AllLabel == "" {
		c.AllLabel = "すべて"
	}
	seen := map[string]bool{}
	c.byGroup = make(map[string]map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		members := make(map[string]struct{}, len(g.Topics))
		for _, t := range g.Topics {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			members[t] = struct{}{}
			if !seen[t] {
				seen[t] = true
				c.topics = append(c.topics, t)
			}
		}
		c.byGroup[g.Name] = members
	}
	return &c, nil
}

// Default is the embedded exam catalog (15 topics, 2 groups).
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the flat topic list in declared order.
func (c *Catalog) All() []string {
	out := make([]string, len(c.topics))
	copy(out, c.topics)
	return out
}

// GroupNames lists parent groups that hold more than one topic. A group
// named after its only topic adds nothing as a filter.
func (c *Catalog) GroupNames() []string {
	var out []string
	for _, g := range c.Groups {
		if len(c.byGroup[g.Name]) > 1 {
			out = append(out, g.Name)
		}
	}
	return out
}

// IsAll reports whether filter selects every category.
func (c *Catalog) IsAll(filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || filter == c.AllLabel
}

// Matches reports whether a question category passes filter. A filter may be
// the all-label, an exact topic, or a parent group name.
func (c *Catalog) Matches(filter, category string) bool {
	if c.IsAll(filter) {
		return true
	}
	filter = strings.TrimSpace(filter)
	if filter == category {
		return true
	}
	if members, ok := c.byGroup[filter]; ok {
		_, in := members[category]
		return in
	}
	return false
}
