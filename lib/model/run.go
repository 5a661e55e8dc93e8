package model

import (
	"sort"
	"time"
)

// Run is the persisted record of one retarget invocation.
type Run struct {
	ID UUID

	OldBaseRoot string
	NewBaseRoot string
	FeatureRoot string
	ReqMapFile  string
	OutputRoot  string

	CreatedAt time.Time

	Summary RunSummary
	Results []*ResolutionResult
}

func NewRun(oldBase, newBase, feature, reqMap, output string) *Run {
	return &Run{
		ID:          NewUUID("n"),
		OldBaseRoot: oldBase,
		NewBaseRoot: newBase,
		FeatureRoot: feature,
		ReqMapFile:  reqMap,
		OutputRoot:  output,
		CreatedAt:   time.Now().UTC().Round(time.Second),
	}
}

type RunSummary struct {
	TotalFiles int
	Resolved   int
	Errors     int
	Auto       int
	Semantic   int
	Conflicts  int
}

// Summarize aggregates results into a RunSummary. Results are sorted by file
// path first, so the stored order and the counts are independent of worker
// scheduling.
func Summarize(results []*ResolutionResult) ([]*ResolutionResult, RunSummary) {
	sorted := make([]*ResolutionResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FilePath < sorted[j].FilePath
	})

	summary := RunSummary{TotalFiles: len(sorted)}
	for _, r := range sorted {
		switch r.Status {
		case StatusResolved:
			summary.Resolved++
			if r.HasSemanticConflicts() {
				summary.Semantic++
			} else {
				summary.Auto++
			}
		case StatusConflict:
			summary.Conflicts++
		case StatusError:
			summary.Errors++
		}
	}

	return sorted, summary
}
