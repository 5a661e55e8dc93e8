package model

// RequirementRule maps a path selector (exact path or glob) to the
// requirement ids that govern it. Rules form an ordered decision list.
type RequirementRule struct {
	Selector  string   `yaml:"selector"`
	ReqIDs    []string `yaml:"req_ids"`
	Rationale string   `yaml:"rationale,omitempty"`
}
