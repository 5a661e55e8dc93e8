package deltas

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/trees"
	"github.com/refactorproject/autorebase/lib/utils"
)

// ExtractionError means a tree root could not be read. It aborts the run
// before any per-file work starts.
type ExtractionError struct {
	Root string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("unreadable tree %v: %v", e.Root, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func NewExtractionError(root string, err error) error {
	return &ExtractionError{Root: root, Err: err}
}

type Extractor struct {
	console consoles.Console
}

func NewExtractor(console consoles.Console) *Extractor {
	return &Extractor{console: console}
}

// Extract computes the Delta between two trees: one PatchUnit per file that
// was added, removed or modified. The same textual algorithm is used for
// every text file; binary files get no line-level patch body.
func (e *Extractor) Extract(from, to *trees.FileTree) (*model.Delta, error) {
	if from == nil || to == nil {
		return nil, NewExtractionError("", errors.New("missing tree"))
	}

	paths := map[string]bool{}
	for _, p := range from.List() {
		paths[p] = true
	}
	for _, p := range to.List() {
		paths[p] = true
	}

	delta := model.NewDelta(from.Root, to.Root)

	bar := utils.NewProgressBar(len(paths))
	defer func() { _ = bar.Clear() }()

	for path := range paths {
		bar.Describe(utils.TruncateFilename(path))

		unit, err := e.extractFile(from, to, path)
		if err != nil {
			return nil, err
		}
		if unit != nil {
			delta.Add(unit)
		}

		_ = bar.Add(1)
	}

	e.console.Printf("Extracted %v changed files (%v -> %v)\n", delta.Len(), from.Root, to.Root)

	return delta, nil
}

func (e *Extractor) extractFile(from, to *trees.FileTree, path string) (*model.PatchUnit, error) {
	inFrom := from.Has(path)
	inTo := to.Has(path)

	unit := &model.PatchUnit{FilePath: path}

	switch {
	case inFrom && !inTo:
		unit.Change = model.FileRemoved
	case !inFrom && inTo:
		unit.Change = model.FileAdded
	default:
		unit.Change = model.FileModified
	}

	if (inFrom && from.IsBinary(path)) || (inTo && to.IsBinary(path)) {
		unit.Binary = true

		if unit.Change == model.FileModified {
			same, err := binaryEqual(from, to, path)
			if err != nil {
				return nil, err
			}
			if same {
				return nil, nil
			}
		}

		return unit, nil
	}

	var oldContent, newContent string

	if inFrom {
		data, err := from.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %v from %v", path, from.Root)
		}
		oldContent = string(data)
	}

	if inTo {
		data, err := to.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error reading %v from %v", path, to.Root)
		}
		newContent = string(data)
	}

	if unit.Change == model.FileModified && oldContent == newContent {
		return nil, nil
	}

	unit.PatchContent = RenderPatch(path, oldContent, newContent)

	added, removed, err := PatchLines(unit.PatchContent)
	if err != nil {
		return nil, errors.Wrapf(err, "error deriving lines for %v", path)
	}
	unit.AddedLines = added
	unit.RemovedLines = removed

	return unit, nil
}

func binaryEqual(from, to *trees.FileTree, path string) (bool, error) {
	a, err := from.ReadFile(path)
	if err != nil {
		return false, err
	}
	b, err := to.ReadFile(path)
	if err != nil {
		return false, err
	}
	return string(a) == string(b), nil
}
