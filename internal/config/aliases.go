package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AliasesYAML is the on-disk shape of a skill alias override file:
//
//	aliases:
//	  golang: [go, golang]
//	  kubernetes: [k8s, kube]
type AliasesYAML struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadSkillAliases reads alias groups from path. An empty path yields no groups.
func LoadSkillAliases(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadSkillAliases: %w", err)
	}
	var doc AliasesYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("op=config.LoadSkillAliases: parse %s: %w", path, err)
	}
	return doc.Aliases, nil
}
