package deltas

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/refactorproject/autorebase/lib/linediff"
)

// contextLines is the amount of unchanged context kept around each hunk when
// rendering a patch body.
const contextLines = 3

const noNewlineMarker = `\ No newline at end of file`

type patchOp struct {
	kind byte // ' ', '-' or '+'
	line string
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	ops                []patchOp
}

// RenderPatch produces a unified-diff-style patch body for one file.
// Returns "" when both sides are equal.
func RenderPatch(path, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	diffs := linediff.Do(oldContent, newContent)
	ops := flatten(diffs)
	hunks := groupHunks(ops)
	if len(hunks) == 0 {
		return ""
	}

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "--- a/%v\n", path)
	fmt.Fprintf(&sb, "+++ b/%v\n", path)

	for _, h := range hunks {
		fmt.Fprintf(&sb, "@@ -%v,%v +%v,%v @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, op := range h.ops {
			sb.WriteByte(op.kind)
			if strings.HasSuffix(op.line, "\n") {
				sb.WriteString(op.line)
			} else {
				sb.WriteString(op.line)
				sb.WriteString("\n")
				sb.WriteString(noNewlineMarker)
				sb.WriteString("\n")
			}
		}
	}

	return sb.String()
}

func flatten(diffs []linediff.Diff) []patchOp {
	var ops []patchOp
	for _, d := range diffs {
		var kind byte
		switch d.Type {
		case linediff.DiffDelete:
			kind = '-'
		case linediff.DiffInsert:
			kind = '+'
		default:
			kind = ' '
		}
		for _, line := range d.Lines {
			ops = append(ops, patchOp{kind: kind, line: line})
		}
	}
	return ops
}

func groupHunks(ops []patchOp) []hunk {
	type span struct{ start, end int }

	var spans []span
	for i, op := range ops {
		if op.kind == ' ' {
			continue
		}

		start := max(0, i-contextLines)
		end := min(len(ops), i+contextLines+1)

		if len(spans) > 0 && start <= spans[len(spans)-1].end {
			spans[len(spans)-1].end = end
		} else {
			spans = append(spans, span{start: start, end: end})
		}
	}

	oldLine, newLine := 1, 1
	pos := 0

	var hunks []hunk
	for _, s := range spans {
		for ; pos < s.start; pos++ {
			switch ops[pos].kind {
			case ' ':
				oldLine++
				newLine++
			case '-':
				oldLine++
			case '+':
				newLine++
			}
		}

		h := hunk{oldStart: oldLine, newStart: newLine}
		for ; pos < s.end; pos++ {
			op := ops[pos]
			h.ops = append(h.ops, op)
			switch op.kind {
			case ' ':
				h.oldCount++
				h.newCount++
				oldLine++
				newLine++
			case '-':
				h.oldCount++
				oldLine++
			case '+':
				h.newCount++
				newLine++
			}
		}
		if h.oldCount == 0 {
			h.oldStart = oldLine - 1
		}
		if h.newCount == 0 {
			h.newStart = newLine - 1
		}
		hunks = append(hunks, h)
	}

	return hunks
}

// parsePatch parses a patch body rendered by RenderPatch (or any unified
// diff limited to one file).
func parsePatch(patch string) ([]hunk, error) {
	var hunks []hunk
	var cur *hunk

	lines := strings.SplitAfter(patch, "\n")
	for _, raw := range lines {
		line := strings.TrimSuffix(raw, "\n")

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ "):
			continue

		case strings.HasPrefix(line, "@@ "):
			h := hunk{}
			_, err := fmt.Sscanf(line, "@@ -%d,%d +%d,%d @@", &h.oldStart, &h.oldCount, &h.newStart, &h.newCount)
			if err != nil {
				return nil, errors.Errorf("malformed hunk header: %v", line)
			}
			hunks = append(hunks, h)
			cur = &hunks[len(hunks)-1]

		case line == noNewlineMarker:
			if cur == nil || len(cur.ops) == 0 {
				return nil, errors.New("misplaced no-newline marker")
			}
			last := &cur.ops[len(cur.ops)-1]
			last.line = strings.TrimSuffix(last.line, "\n")

		case line[0] == ' ' || line[0] == '-' || line[0] == '+':
			if cur == nil {
				return nil, errors.Errorf("patch line outside a hunk: %v", line)
			}
			cur.ops = append(cur.ops, patchOp{kind: line[0], line: line[1:] + "\n"})

		default:
			return nil, errors.Errorf("malformed patch line: %v", line)
		}
	}

	return hunks, nil
}

// ApplyPatch replays a patch body on top of oldContent and returns the new
// content. Context lines are verified; a mismatch is an error.
func ApplyPatch(oldContent, patch string) (string, error) {
	hunks, err := parsePatch(patch)
	if err != nil {
		return "", err
	}

	oldLines := splitLines(oldContent)

	sb := strings.Builder{}
	pos := 0 // 0-based index into oldLines

	for _, h := range hunks {
		start := h.oldStart - 1
		if h.oldCount == 0 {
			start = h.oldStart
		}
		if start < pos || start > len(oldLines) {
			return "", errors.Errorf("hunk @@ -%v,%v out of order", h.oldStart, h.oldCount)
		}

		for ; pos < start; pos++ {
			sb.WriteString(oldLines[pos])
		}

		for _, op := range h.ops {
			switch op.kind {
			case ' ', '-':
				if pos >= len(oldLines) || oldLines[pos] != op.line {
					return "", errors.Errorf("context mismatch at line %v", pos+1)
				}
				if op.kind == ' ' {
					sb.WriteString(op.line)
				}
				pos++
			case '+':
				sb.WriteString(op.line)
			}
		}
	}

	for ; pos < len(oldLines); pos++ {
		sb.WriteString(oldLines[pos])
	}

	return sb.String(), nil
}

// PatchLines returns the added and removed lines of a patch body, without
// their +/- prefix or trailing newline.
func PatchLines(patch string) (added []string, removed []string, err error) {
	hunks, err := parsePatch(patch)
	if err != nil {
		return nil, nil, err
	}

	for _, h := range hunks {
		for _, op := range h.ops {
			line := strings.TrimSuffix(op.line, "\n")
			switch op.kind {
			case '+':
				added = append(added, line)
			case '-':
				removed = append(removed, line)
			}
		}
	}

	return added, removed, nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	split := strings.SplitAfter(text, "\n")
	if split[len(split)-1] == "" {
		split = split[:len(split)-1]
	}
	return split
}
