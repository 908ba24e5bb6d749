package services

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/component_descriptions.yaml
var componentDescriptionsYAML []byte

// ComponentDescription introduces a component before it is assessed
type ComponentDescription struct {
	Summary      string   `yaml:"summary" json:"summary"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	Users        string   `yaml:"users" json:"users"`
}

var (
	descriptionsOnce sync.Once
	descriptions     map[string]ComponentDescription
	descriptionsErr  error
)

// LoadComponentDescriptions parses the embedded descriptions once
func LoadComponentDescriptions() (map[string]ComponentDescription, error) {
	descriptionsOnce.Do(func() {
		descriptions = make(map[string]ComponentDescription)
		if err := yaml.Unmarshal(componentDescriptionsYAML, &descriptions); err != nil {
			descriptionsErr = fmt.Errorf("failed to parse component descriptions: %w", err)
		}
	})
	return descriptions, descriptionsErr
}

// DescribeComponent returns the description of a component code. Components
// without one get an empty description.
func DescribeComponent(code string) ComponentDescription {
	all, err := LoadComponentDescriptions()
	if err != nil {
		return ComponentDescription{}
	}
	return all[NormalizeComponentCode(code)]
}
