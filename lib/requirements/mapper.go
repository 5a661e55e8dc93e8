package requirements

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/refactorproject/autorebase/lib/model"
)

// Mapper resolves a file path to its governing requirement ids. Rules form
// an ordered decision list: the first rule whose selector matches wins, no
// matter whether it is an exact path or a glob.
type Mapper struct {
	rules []model.RequirementRule
}

func NewMapper(rules []model.RequirementRule) *Mapper {
	return &Mapper{rules: rules}
}

func Load(file string) (*Mapper, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading requirement map %v", file)
	}

	var rules []model.RequirementRule
	err = yaml.Unmarshal(data, &rules)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed requirement map %v", file)
	}

	for i, r := range rules {
		if r.Selector == "" {
			return nil, errors.Errorf("requirement rule %v has no selector", i+1)
		}
		if !doublestar.ValidatePattern(r.Selector) {
			return nil, errors.Errorf("invalid selector in rule %v: %v", i+1, r.Selector)
		}
	}

	return NewMapper(rules), nil
}

func (m *Mapper) Rules() []model.RequirementRule {
	return m.rules
}

func (m *Mapper) Resolve(path string) (reqIDs []string, rationale string) {
	for _, rule := range m.rules {
		if rule.Selector == path {
			return rule.ReqIDs, rule.Rationale
		}

		ok, err := doublestar.Match(rule.Selector, path)
		if err == nil && ok {
			return rule.ReqIDs, rule.Rationale
		}
	}

	return nil, ""
}

// Annotate attaches requirement ids to every unit of a freshly extracted
// delta. Must run before the units are handed to the engine.
func (m *Mapper) Annotate(units []*model.PatchUnit) {
	for _, u := range units {
		ids, rationale := m.Resolve(u.FilePath)
		u.ReqIDs = ids
		if rationale != "" {
			u.Requirements = append(u.Requirements, rationale)
		}
	}
}
