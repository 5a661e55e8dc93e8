package linediff

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff is one run of equal, inserted or deleted lines. Lines keep their
// trailing newline, except for a final line that has none.
type Diff struct {
	Type  Operation
	Lines []string
}

type Operation int8

const (
	DiffDelete Operation = Operation(diffmatchpatch.DiffDelete)
	DiffInsert Operation = Operation(diffmatchpatch.DiffInsert)
	DiffEqual  Operation = Operation(diffmatchpatch.DiffEqual)
)

func Do(src, dst string) []Diff {
	return DoWithTimeout(src, dst, time.Minute)
}

func DoWithTimeout(src, dst string, timeout time.Duration) []Diff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = timeout
	wSrc, wDst, lines := textsToLineIndexes(src, dst)
	dmpd := dmp.DiffMainRunes(wSrc, wDst, false)
	return lineIndexesToDiffs(dmpd, lines)
}

func lineIndexesToDiffs(diffs []diffmatchpatch.Diff, lines []string) []Diff {
	hydrated := make([]Diff, 0, len(diffs))
	for _, aDiff := range diffs {
		text := make([]string, 0, len(aDiff.Text))
		for _, r := range aDiff.Text {
			text = append(text, lines[r])
		}
		hydrated = append(hydrated, Diff{
			Type:  Operation(aDiff.Type),
			Lines: text,
		})
	}
	return hydrated
}

func textsToLineIndexes(text1, text2 string) ([]rune, []rune, []string) {
	lineToIndex := make(map[string]int)
	var lines []string
	indexes1 := textToLineIndexes(text1, lineToIndex, &lines)
	indexes2 := textToLineIndexes(text2, lineToIndex, &lines)
	return indexes1, indexes2, lines
}

func textToLineIndexes(text string, lineToIndex map[string]int, lines *[]string) []rune {
	if text == "" {
		return nil
	}

	split := strings.SplitAfter(text, "\n")
	if split[len(split)-1] == "" {
		split = split[:len(split)-1]
	}

	result := make([]rune, len(split))
	for i, line := range split {
		lineValue, ok := lineToIndex[line]

		if !ok {
			lineValue = len(lineToIndex)
			lineToIndex[line] = lineValue
			*lines = append(*lines, line)
		}

		result[i] = rune(lineValue)
	}
	return result
}
