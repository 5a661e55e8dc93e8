package conflicts

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/hashicorp/go-set/v2"
	"github.com/samber/lo"

	"github.com/refactorproject/autorebase/lib/model"
)

// ClassificationError means one file's patch body could not be analyzed. It
// is recorded as that file's error and never aborts the run.
type ClassificationError struct {
	FilePath string
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify %v: %v", e.FilePath, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

var (
	includeRe = regexp.MustCompile(`^\s*#\s*include\s*["<]([^">]+)[">]`)
	importRe  = regexp.MustCompile(`^\s*import\s+(?:[\w.]+\s+)?["']?([\w./-]+)["']?`)
	symbolRe  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	callRe    = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(([^()]*)\)`)
)

// Keywords the symbol regex would otherwise take for callables.
var reservedSymbols = set.From([]string{
	"if", "else", "for", "while", "switch", "return", "sizeof", "defer",
	"func", "catch", "assert", "new", "delete", "range", "go",
})

type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify compares the feature unit against the base unit for the same
// path and produces typed conflict records. A nil base unit means the base
// did not touch this file and there is nothing to reconcile.
func (c *Classifier) Classify(feature *model.PatchUnit, base *model.PatchUnit) ([]model.ConflictRecord, error) {
	if base == nil {
		return nil, nil
	}

	if err := checkUnit(feature); err != nil {
		return nil, err
	}
	if err := checkUnit(base); err != nil {
		return nil, err
	}

	var records []model.ConflictRecord

	if r := c.structural(feature, base); r != nil {
		records = append(records, *r)
	}

	if feature.Binary || base.Binary {
		return records, nil
	}

	records = append(records, c.headerChanges(feature, base)...)
	records = append(records, c.apiRenames(feature, base)...)
	records = append(records, c.parameterChanges(feature, base)...)

	if overlap := c.contentOverlap(feature, base); len(records) == 0 && len(overlap) > 0 {
		records = append(records, model.ConflictRecord{
			Category: model.ContentChange,
			Evidence: overlap,
		})
	}

	return records, nil
}

func checkUnit(u *model.PatchUnit) error {
	if u.Binary || u.Change == model.FileRemoved {
		return nil
	}
	if u.PatchContent == "" || !strings.Contains(u.PatchContent, "@@ ") {
		return &ClassificationError{
			FilePath: u.FilePath,
			Err:      fmt.Errorf("patch body has no hunks"),
		}
	}
	return nil
}

func (c *Classifier) structural(feature *model.PatchUnit, base *model.PatchUnit) *model.ConflictRecord {
	if feature.Binary || base.Binary {
		return &model.ConflictRecord{
			Category: model.StructuralChange,
			OldValue: feature.Change.String(),
			NewValue: base.Change.String(),
			Evidence: []string{"binary file"},
		}
	}

	if (feature.Change != model.FileModified) != (base.Change != model.FileModified) {
		return &model.ConflictRecord{
			Category: model.StructuralChange,
			OldValue: feature.Change.String(),
			NewValue: base.Change.String(),
		}
	}

	return nil
}

func (c *Classifier) headerChanges(feature *model.PatchUnit, base *model.PatchUnit) []model.ConflictRecord {
	var records []model.ConflictRecord

	for _, re := range headerPatternsFor(feature.FilePath, base) {
		removedRefs, removedLines := referencedResources(base.RemovedLines, re)
		addedRefs, addedLines := referencedResources(base.AddedLines, re)

		gone := sortedSlice(removedRefs.Difference(addedRefs))
		born := sortedSlice(addedRefs.Difference(removedRefs))

		// Pair old to new references in stable order, like the base commit
		// renaming one header to another.
		for i := 0; i < len(gone) && i < len(born); i++ {
			records = append(records, model.ConflictRecord{
				Category: model.HeaderChange,
				OldValue: gone[i],
				NewValue: born[i],
				Evidence: append(removedLines[gone[i]], addedLines[born[i]]...),
			})
		}
	}

	return records
}

func (c *Classifier) apiRenames(feature *model.PatchUnit, base *model.PatchUnit) []model.ConflictRecord {
	removedSyms, removedLines := definedSymbols(base.RemovedLines)
	addedSyms, addedLines := definedSymbols(base.AddedLines)

	gone := sortedSlice(removedSyms.Difference(addedSyms))
	born := sortedSlice(addedSyms.Difference(removedSyms))

	var records []model.ConflictRecord
	for i := 0; i < len(gone) && i < len(born); i++ {
		oldSym := gone[i]
		newSym := born[i]

		// Only a conflict when the feature still relies on the old name.
		if !containsToken(feature.PatchContent, oldSym) {
			continue
		}

		records = append(records, model.ConflictRecord{
			Category: model.ApiRename,
			OldValue: oldSym,
			NewValue: newSym,
			Evidence: append(removedLines[oldSym], addedLines[newSym]...),
		})
	}

	return records
}

func (c *Classifier) parameterChanges(feature *model.PatchUnit, base *model.PatchUnit) []model.ConflictRecord {
	removed := declaredSignatures(base.RemovedLines)
	added := declaredSignatures(base.AddedLines)

	names := lo.Keys(removed)
	sort.Strings(names)

	var records []model.ConflictRecord
	for _, name := range names {
		oldSig := removed[name]
		newSig, ok := added[name]
		if !ok {
			continue
		}
		if sameParams(oldSig.params, newSig.params) {
			continue
		}
		if !containsToken(feature.PatchContent, name) {
			continue
		}

		records = append(records, model.ConflictRecord{
			Category: model.ParameterChange,
			OldValue: oldSig.text,
			NewValue: newSig.text,
			Evidence: []string{oldSig.line, newSig.line},
		})
	}

	return records
}

func (c *Classifier) contentOverlap(feature *model.PatchUnit, base *model.PatchUnit) []string {
	featureRemoved := set.From(feature.RemovedLines)

	return lo.Filter(base.RemovedLines, func(line string, _ int) bool {
		return strings.TrimSpace(line) != "" && featureRemoved.Contains(line)
	})
}

// headerPatternsFor picks the include/import reference patterns for a file,
// using language detection on the base unit's changed lines.
func headerPatternsFor(path string, base *model.PatchUnit) []*regexp.Regexp {
	sample := strings.Join(append(append([]string{}, base.AddedLines...), base.RemovedLines...), "\n")
	lang := enry.GetLanguage(filepath.Base(path), []byte(sample))

	switch lang {
	case "C", "C++", "Objective-C":
		return []*regexp.Regexp{includeRe}
	case "Go", "Python", "Java", "Kotlin", "JavaScript", "TypeScript":
		return []*regexp.Regexp{importRe}
	default:
		return []*regexp.Regexp{includeRe, importRe}
	}
}

func referencedResources(lines []string, re *regexp.Regexp) (*set.Set[string], map[string][]string) {
	refs := set.New[string](len(lines))
	evidence := map[string][]string{}

	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		refs.Insert(m[1])
		evidence[m[1]] = append(evidence[m[1]], line)
	}

	return refs, evidence
}

func definedSymbols(lines []string) (*set.Set[string], map[string][]string) {
	syms := set.New[string](len(lines))
	evidence := map[string][]string{}

	for _, line := range lines {
		for _, m := range symbolRe.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if reservedSymbols.Contains(name) {
				continue
			}
			syms.Insert(name)
			evidence[name] = append(evidence[name], line)
		}
	}

	return syms, evidence
}

type signature struct {
	name   string
	params []string
	text   string
	line   string
}

func declaredSignatures(lines []string) map[string]signature {
	result := map[string]signature{}

	for _, line := range lines {
		m := callRe.FindStringSubmatch(line)
		if m == nil || reservedSymbols.Contains(m[1]) {
			continue
		}

		params := lo.FilterMap(strings.Split(m[2], ","), func(p string, _ int) (string, bool) {
			p = strings.Join(strings.Fields(p), " ")
			return p, p != ""
		})

		result[m[1]] = signature{
			name:   m[1],
			params: params,
			text:   m[1] + "(" + strings.Join(params, ", ") + ")",
			line:   line,
		}
	}

	return result
}

func sameParams(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsToken(text, token string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(token) + `\b`)
	return re.MatchString(text)
}

func sortedSlice(s set.Collection[string]) []string {
	result := s.Slice()
	sort.Strings(result)
	return result
}
