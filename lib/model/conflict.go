package model

type ConflictCategory string

const (
	ApiRename        ConflictCategory = "api_rename"
	ParameterChange  ConflictCategory = "parameter_change"
	HeaderChange     ConflictCategory = "header_change"
	StructuralChange ConflictCategory = "structural_change"
	ContentChange    ConflictCategory = "content_change"
)

// ConflictRecord is one detected semantic conflict between the feature and
// base change-sets for a file. Records are transient: they feed the
// resolvers and the run report, nothing else.
type ConflictRecord struct {
	Category ConflictCategory
	OldValue string
	NewValue string
	Evidence []string
}
