package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a plain scalar (primary only) or a
// {primary, secondary} mapping.
func (t *Text) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		t.Primary = value.Value
		t.Secondary = ""
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i]
			if key.Value != "primary" && key.Value != "secondary" {
				return fmt.Errorf("line %d: field %s not found in text (want primary or secondary)", key.Line, key.Value)
			}
		}
		var pair struct {
			Primary   string `yaml:"primary"`
			Secondary string `yaml:"secondary"`
		}
		if err := value.Decode(&pair); err != nil {
			return err
		}
		t.Primary, t.Secondary = pair.Primary, pair.Secondary
		return nil
	default:
		return fmt.Errorf("line %d: text must be a string or a primary/secondary mapping", value.Line)
	}
}

// MarshalYAML writes a scalar when there is no secondary string.
func (t Text) MarshalYAML() (interface{}, error) {
	if t.Secondary == "" {
		return t.Primary, nil
	}
	return struct {
		Primary   string `yaml:"primary"`
		Secondary string `yaml:"secondary"`
	}{t.Primary, t.Secondary}, nil
}
