package model

type ResolutionStatus string

const (
	StatusResolved ResolutionStatus = "resolved"
	StatusConflict ResolutionStatus = "conflict"
	StatusError    ResolutionStatus = "error"
)

type ResolutionMethod string

const (
	MethodAI        ResolutionMethod = "ai"
	MethodHeuristic ResolutionMethod = "heuristic"
)

// ResolutionResult is the terminal record for one file in a run. Created
// exactly once per file, persisted as part of the run's audit log and never
// mutated after creation.
type ResolutionResult struct {
	ID       UUID
	FilePath string

	Status ResolutionStatus
	Method ResolutionMethod

	// ResolvedContent is nil unless Status is resolved, or the applier has
	// best-effort content with inline markers for a conflict.
	ResolvedContent *string

	// Confidence is only meaningful when Status is resolved.
	Confidence float64

	Conflicts []ConflictRecord
	ReqIDs    []string

	// RejectText holds the unresolved hunk text verbatim when Status is
	// conflict; the applier materializes it as a sibling reject artifact.
	RejectText string

	// Diagnostics records non-fatal events, like a failed AI attempt that
	// fell through to the heuristic backend.
	Diagnostics []string
}

func NewResolutionResult(path string) *ResolutionResult {
	return &ResolutionResult{
		ID:       NewUUID("r"),
		FilePath: path,
	}
}

func (r *ResolutionResult) HasSemanticConflicts() bool {
	return len(r.Conflicts) > 0
}
