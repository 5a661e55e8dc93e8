package applier

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/trees"
	"github.com/refactorproject/autorebase/lib/utils"
)

// RejectSuffix names the sibling artifact holding unresolved hunks.
const RejectSuffix = ".rej"

// Applier materializes the retargeted tree: the new baseline is the
// starting state, resolved contents land on top of it. Every write goes
// through a temp file plus rename so a crashed run never leaves half a
// file behind.
type Applier struct {
	console consoles.Console
}

func NewApplier(console consoles.Console) *Applier {
	return &Applier{console: console}
}

// Apply writes the output tree. Per-file IO failures are retried once and
// then downgrade that file's result to an error; only failures touching
// the output root itself are fatal.
func (a *Applier) Apply(results []*model.ResolutionResult, baseNew *trees.FileTree, outputRoot string) error {
	outputRoot, err := utils.PathAbs(outputRoot)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create output root %v", outputRoot)
	}

	resolved := make(map[string]*model.ResolutionResult, len(results))
	for _, r := range results {
		resolved[r.FilePath] = r
	}

	written := 0
	rejects := 0
	bytes := uint64(0)

	for _, path := range baseNew.List() {
		if _, ok := resolved[path]; ok {
			continue
		}

		content, err := baseNew.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "cannot read baseline file %v", path)
		}
		if err := a.writeAtomic(outputRoot, path, content); err != nil {
			return err
		}

		written++
		bytes += uint64(len(content))
	}

	for _, r := range results {
		switch r.Status {
		case model.StatusError:
			// Nothing trustworthy to write.

		case model.StatusResolved, model.StatusConflict:
			n, rej, err := a.applyResult(r, baseNew, outputRoot)
			if err != nil {
				r.Status = model.StatusError
				r.ResolvedContent = nil
				r.Diagnostics = append(r.Diagnostics, err.Error())
				continue
			}

			if n > 0 {
				written++
				bytes += uint64(n)
			}
			if rej {
				rejects++
			}
		}
	}

	a.console.Printf("Wrote %v files (%v) to %v, %v reject artifacts\n",
		written, humanize.Bytes(bytes), outputRoot, rejects)

	return nil
}

func (a *Applier) applyResult(r *model.ResolutionResult, baseNew *trees.FileTree, outputRoot string) (int, bool, error) {
	written := 0

	switch {
	case r.ResolvedContent == nil && r.Status == model.StatusResolved:
		// A deletion the feature carried over: make sure the baseline
		// copy of the file is not in the output.
		if err := a.remove(outputRoot, r.FilePath); err != nil {
			return 0, false, err
		}

	case r.ResolvedContent != nil:
		if err := a.writeAtomic(outputRoot, r.FilePath, []byte(*r.ResolvedContent)); err != nil {
			return 0, false, err
		}
		written = len(*r.ResolvedContent)

	default:
		// Conflict with nothing mergeable (binary): keep the baseline
		// content, the reject carries the feature's side.
		if baseNew.Has(r.FilePath) {
			content, err := baseNew.ReadFile(r.FilePath)
			if err != nil {
				return 0, false, err
			}
			if err := a.writeAtomic(outputRoot, r.FilePath, content); err != nil {
				return 0, false, err
			}
			written = len(content)
		}
	}

	if r.Status == model.StatusConflict {
		if err := a.writeAtomic(outputRoot, r.FilePath+RejectSuffix, []byte(r.RejectText)); err != nil {
			return written, false, err
		}
		return written, true, nil
	}

	return written, false, nil
}

func (a *Applier) writeAtomic(root, path string, content []byte) error {
	err := writeAtomicOnce(root, path, content)
	if err != nil {
		err = writeAtomicOnce(root, path, content)
	}
	return errors.Wrapf(err, "cannot write %v", path)
}

func writeAtomicOnce(root, path string, content []byte) error {
	dest := filepath.Join(root, filepath.FromSlash(path))

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".autorebase-*")
	if err != nil {
		return err
	}

	_, err = tmp.Write(content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}

	return nil
}

func (a *Applier) remove(root, path string) error {
	dest := filepath.Join(root, filepath.FromSlash(path))

	err := os.Remove(dest)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot remove %v", path)
	}
	return nil
}
