package validate

import (
	"strings"

	"github.com/samber/lo"

	"github.com/refactorproject/autorebase/lib/applier"
	"github.com/refactorproject/autorebase/lib/trees"
)

// Report is the outcome of a read-only output scan.
type Report struct {
	Root        string
	RejectFiles []string
	MarkedFiles []string
}

func (r *Report) Clean() bool {
	return len(r.RejectFiles) == 0 && len(r.MarkedFiles) == 0
}

// Scan walks a retargeted tree and reports leftover reject artifacts and
// inline conflict markers. It never mutates the tree.
func Scan(tree *trees.FileTree) (*Report, error) {
	report := &Report{Root: tree.Root}

	for _, path := range tree.List() {
		if strings.HasSuffix(path, applier.RejectSuffix) {
			report.RejectFiles = append(report.RejectFiles, path)
			continue
		}

		if tree.IsBinary(path) {
			continue
		}

		content, err := tree.ReadFile(path)
		if err != nil {
			return nil, err
		}

		if hasConflictMarkers(string(content)) {
			report.MarkedFiles = append(report.MarkedFiles, path)
		}
	}

	return report, nil
}

func hasConflictMarkers(content string) bool {
	lines := strings.Split(content, "\n")

	opened := lo.ContainsBy(lines, func(l string) bool { return strings.HasPrefix(l, "<<<<<<<") })
	closed := lo.ContainsBy(lines, func(l string) bool { return strings.HasPrefix(l, ">>>>>>>") })

	return opened && closed
}
