package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// termList decodes either a YAML/JSON list or a comma-separated string.
type termList []string

func (t *termList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*t = strings.Split(s, ",")
		return nil
	case yaml.SequenceNode:
		var xs []string
		if err := n.Decode(&xs); err != nil {
			return err
		}
		*t = xs
		return nil
	}
	return fmt.Errorf("line %d: expected string or list", n.Line)
}

type skillsFile struct {
	Any       termList `yaml:"any"`
	SkillsAny termList `yaml:"skills_any"`
	All       termList `yaml:"all"`
	SkillsAll termList `yaml:"skills_all"`
}

// LoadDefaultSkills reads the default skills file. A missing or invalid file
// yields empty lists; the run continues without default skills.
func LoadDefaultSkills(path string) (anyTerms, allTerms []string) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	var f skillsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, nil
	}
	anyTerms = f.Any
	if len(anyTerms) == 0 {
		anyTerms = f.SkillsAny
	}
	allTerms = f.All
	if len(allTerms) == 0 {
		allTerms = f.SkillsAll
	}
	return lowerList(anyTerms), lowerList(allTerms)
}

// EffectiveSkills resolves the skill lists for a run: explicit lists win,
// and the defaults file is consulted only when use_defaults is set and both
// lists are empty.
func (c Config) EffectiveSkills() (anyTerms, allTerms []string) {
	if len(c.Skills.Any) > 0 || len(c.Skills.All) > 0 || !c.Skills.UseDefaults {
		return lowerList(c.Skills.Any), lowerList(c.Skills.All)
	}
	return LoadDefaultSkills(c.DefaultSkillsFile)
}
