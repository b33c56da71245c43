package scoring

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk form of a rubric set. YAML and JSON are both accepted.
type Catalog struct {
	Rubrics []RubricSpec `yaml:"rubrics" json:"rubrics"`
}

// ParseCatalog decodes a rubric catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, configErrorf("decode rubric catalog: %v", err)
	}
	if len(c.Rubrics) == 0 {
		return Catalog{}, configErrorf("rubric catalog declares no rubrics")
	}
	return c, nil
}

// LoadRubricSet parses data and validates every rubric in it.
func LoadRubricSet(data []byte, opts ...RubricOption) (*RubricSet, error) {
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	set, err := NewRubricSet(c.Rubrics, opts...)
	if err != nil {
		return nil, fmt.Errorf("load rubric set: %w", err)
	}
	return set, nil
}
