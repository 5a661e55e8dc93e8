package resolvers

import (
	"context"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/refactorproject/autorebase/lib/linediff"
	"github.com/refactorproject/autorebase/lib/model"
)

const (
	markerFeature = "<<<<<<< feature\n"
	markerMiddle  = "=======\n"
	markerBase    = ">>>>>>> base\n"
)

type heuristicResolver struct {
}

// NewHeuristicResolver builds the deterministic backend. It replays the
// feature's change blocks onto the new baseline, substituting renamed
// symbols and headers from the classifier's findings. Blocks it cannot
// anchor become inline conflict markers plus reject text.
func NewHeuristicResolver() Resolver {
	return &heuristicResolver{}
}

func (h *heuristicResolver) Name() string {
	return "heuristic"
}

func (h *heuristicResolver) Resolve(ctx context.Context, req *Request) (*model.ResolutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := model.NewResolutionResult(req.FilePath)
	result.Method = model.MethodHeuristic
	result.Conflicts = req.Conflicts
	result.ReqIDs = req.ReqIDs

	switch {
	case req.FeatureUnit.IsDeletion():
		// The feature removed the file; the retarget keeps it removed.
		result.Status = model.StatusResolved
		result.Confidence = 1

	case req.BaseUnit == nil:
		result.Status = model.StatusResolved
		result.ResolvedContent = lo.ToPtr(req.FeatureContent)
		result.Confidence = 1

	case req.FeatureUnit.Binary || req.BaseUnit.Binary:
		h.reject(result, req.FeatureUnit.PatchContent,
			"binary contents cannot be merged line by line")

	case hasCategory(req.Conflicts, model.StructuralChange):
		h.reject(result, req.FeatureUnit.PatchContent,
			"feature and base disagree on the file's existence")

	default:
		h.merge(result, req)
	}

	return result, nil
}

// reject marks the whole file as unresolvable and keeps the feature's
// patch text for the reject artifact. Binary units carry no patch body,
// so the diagnostic doubles as the artifact's content.
func (h *heuristicResolver) reject(result *model.ResolutionResult, patch string, why string) {
	result.Status = model.StatusConflict
	result.Confidence = 0
	if patch == "" {
		patch = why + "\n"
	}
	result.RejectText = patch
	result.Diagnostics = append(result.Diagnostics, why)
}

// block is one contiguous feature edit: the lines it removes and the lines
// it adds, bracketed by the unchanged runs around it.
type mergeBlock struct {
	prevAnchor []string
	deleted    []string
	inserted   []string
	nextAnchor []string
}

func (h *heuristicResolver) merge(result *model.ResolutionResult, req *Request) {
	subs := compileSubstitutions(req.Conflicts)
	blocks := changeBlocks(linediff.Do(req.OldContent, req.FeatureContent))

	base := splitKeepNewlines(req.BaseNewContent)
	cursor := 0
	conflicts := 0
	substituted := false

	var out strings.Builder
	var reject strings.Builder

	for _, b := range blocks {
		deleted := applySubstitutions(subs, b.deleted, &substituted)
		inserted := applySubstitutions(subs, b.inserted, &substituted)

		var at int
		var found bool
		if len(deleted) > 0 {
			at, found = findRun(base, cursor, deleted)
		} else {
			at, found = findInsertionPoint(base, cursor, applySubstitutions(subs, b.prevAnchor, &substituted), applySubstitutions(subs, b.nextAnchor, &substituted))
		}

		if !found {
			conflicts++
			writeRejectHunk(&reject, deleted, inserted)

			out.WriteString(markerFeature)
			writeLines(&out, inserted)
			out.WriteString(markerMiddle)
			writeLines(&out, deleted)
			out.WriteString(markerBase)
			continue
		}

		writeLines(&out, base[cursor:at])
		writeLines(&out, inserted)
		cursor = at + len(deleted)
	}

	writeLines(&out, base[cursor:])

	result.ResolvedContent = lo.ToPtr(out.String())
	result.RejectText = reject.String()

	if conflicts > 0 {
		result.Status = model.StatusConflict
		result.Confidence = 0.3
		return
	}

	result.Status = model.StatusResolved
	result.Confidence = 0.9
	if substituted {
		result.Confidence = 0.75
	}
}

// changeBlocks folds a line diff into edit blocks with their surrounding
// unchanged runs. Consecutive delete and insert runs belong to one block.
func changeBlocks(diffs []linediff.Diff) []mergeBlock {
	var blocks []mergeBlock
	var lastEqual []string

	i := 0
	for i < len(diffs) {
		if diffs[i].Type == linediff.DiffEqual {
			lastEqual = diffs[i].Lines
			i++
			continue
		}

		b := mergeBlock{prevAnchor: lastEqual}
		for i < len(diffs) && diffs[i].Type != linediff.DiffEqual {
			switch diffs[i].Type {
			case linediff.DiffDelete:
				b.deleted = append(b.deleted, diffs[i].Lines...)
			case linediff.DiffInsert:
				b.inserted = append(b.inserted, diffs[i].Lines...)
			}
			i++
		}
		if i < len(diffs) {
			b.nextAnchor = diffs[i].Lines
		}
		blocks = append(blocks, b)
	}

	return blocks
}

// findRun locates lines as a contiguous run in base at or after from.
func findRun(base []string, from int, lines []string) (int, bool) {
	if len(lines) == 0 {
		return from, true
	}

	for i := from; i+len(lines) <= len(base); i++ {
		if sameLines(base[i:i+len(lines)], lines) {
			return i, true
		}
	}
	return 0, false
}

// findInsertionPoint anchors a pure insertion: right after the last line
// of the preceding unchanged run, or failing that right before the first
// line of the following one.
func findInsertionPoint(base []string, from int, prevAnchor, nextAnchor []string) (int, bool) {
	if len(prevAnchor) > 0 {
		anchor := prevAnchor[len(prevAnchor)-1]
		for i := from; i < len(base); i++ {
			if sameLine(base[i], anchor) {
				return i + 1, true
			}
		}
	} else if from == 0 {
		return 0, true
	}

	if len(nextAnchor) > 0 {
		anchor := nextAnchor[0]
		for i := from; i < len(base); i++ {
			if sameLine(base[i], anchor) {
				return i, true
			}
		}
	}

	return 0, false
}

func sameLines(a, b []string) bool {
	for i := range a {
		if !sameLine(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameLine ignores the trailing newline so the file's last line compares
// equal whether or not it is newline terminated.
func sameLine(a, b string) bool {
	return strings.TrimSuffix(a, "\n") == strings.TrimSuffix(b, "\n")
}

type substitution struct {
	re  *regexp.Regexp
	new string
}

// compileSubstitutions turns rename and header findings into whole token
// replacements. Parameter and content findings carry no safe textual
// rewrite and are left to the merge anchors.
func compileSubstitutions(conflicts []model.ConflictRecord) []substitution {
	var subs []substitution
	for _, c := range conflicts {
		if c.Category != model.ApiRename && c.Category != model.HeaderChange {
			continue
		}
		if c.OldValue == "" || c.NewValue == "" || c.OldValue == c.NewValue {
			continue
		}

		re, err := regexp.Compile(tokenPattern(c.OldValue))
		if err != nil {
			continue
		}
		subs = append(subs, substitution{re: re, new: c.NewValue})
	}
	return subs
}

func tokenPattern(token string) string {
	pattern := regexp.QuoteMeta(token)
	if isWordChar(token[0]) {
		pattern = `\b` + pattern
	}
	if isWordChar(token[len(token)-1]) {
		pattern += `\b`
	}
	return pattern
}

func isWordChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func applySubstitutions(subs []substitution, lines []string, substituted *bool) []string {
	if len(subs) == 0 || len(lines) == 0 {
		return lines
	}

	result := make([]string, len(lines))
	for i, line := range lines {
		for _, s := range subs {
			replaced := s.re.ReplaceAllLiteralString(line, s.new)
			if replaced != line {
				*substituted = true
				line = replaced
			}
		}
		result[i] = line
	}
	return result
}

func splitKeepNewlines(text string) []string {
	if text == "" {
		return nil
	}

	split := strings.SplitAfter(text, "\n")
	if split[len(split)-1] == "" {
		split = split[:len(split)-1]
	}
	return split
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, line := range lines {
		sb.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			sb.WriteString("\n")
		}
	}
}

// writeRejectHunk renders one unplaceable edit in unified diff form so the
// reject artifact stays actionable by hand.
func writeRejectHunk(sb *strings.Builder, deleted, inserted []string) {
	sb.WriteString("@@ rejected hunk @@\n")
	for _, line := range deleted {
		sb.WriteString("-" + strings.TrimSuffix(line, "\n") + "\n")
	}
	for _, line := range inserted {
		sb.WriteString("+" + strings.TrimSuffix(line, "\n") + "\n")
	}
}

func hasCategory(conflicts []model.ConflictRecord, cat model.ConflictCategory) bool {
	return lo.ContainsBy(conflicts, func(c model.ConflictRecord) bool { return c.Category == cat })
}
