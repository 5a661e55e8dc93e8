package trees

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/refactorproject/autorebase/lib/utils"
)

// Options controls which files become part of a FileTree snapshot.
type Options struct {
	Include          []string
	Exclude          []string
	RespectGitignore bool
}

// FileTree is a read-only rooted snapshot of files, keyed by slash-separated
// relative path.
type FileTree struct {
	Root string

	files map[string]*entry
}

type entry struct {
	binary bool
	read   func() ([]byte, error)
}

// NewDirTree snapshots a directory on disk. It fails if the root is not a
// readable directory.
func NewDirTree(root string, opts *Options) (*FileTree, error) {
	if opts == nil {
		opts = &Options{}
	}

	root, err := utils.PathAbs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "unreadable tree root %v", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("tree root %v is not a directory", root)
	}

	filter, err := newFilter(root, opts)
	if err != nil {
		return nil, err
	}

	paths, err := utils.ListFilesRecursive(root, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing tree %v", root)
	}

	result := &FileTree{
		Root:  root,
		files: map[string]*entry{},
	}

	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)

		text, err := utils.IsTextFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error sampling %v", path)
		}

		path := path
		result.files[rel] = &entry{
			binary: !text,
			read:   func() ([]byte, error) { return os.ReadFile(path) },
		}
	}

	return result, nil
}

func newFilter(root string, opts *Options) (func(path string) bool, error) {
	includes, err := compileGlobs(opts.Include)
	if err != nil {
		return nil, err
	}

	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	var ignored func(path string) bool
	if opts.RespectGitignore {
		ignored, err = utils.FindGitIgnore(root)
		if err != nil {
			return nil, err
		}
	}

	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)

		if ignored != nil && ignored(path) {
			return false
		}

		for _, g := range excludes {
			if g.Match(rel) {
				return false
			}
		}

		if len(includes) == 0 {
			return true
		}

		for _, g := range includes {
			if g.Match(rel) {
				return true
			}
		}

		return false
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var result []glob.Glob

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid file pattern: %v", p)
		}

		result = append(result, g)
	}

	return result, nil
}

func (t *FileTree) Has(path string) bool {
	_, ok := t.files[path]
	return ok
}

func (t *FileTree) IsBinary(path string) bool {
	e, ok := t.files[path]
	return ok && e.binary
}

func (t *FileTree) ReadFile(path string) ([]byte, error) {
	e, ok := t.files[path]
	if !ok {
		return nil, errors.Errorf("no such file in tree %v: %v", t.Root, path)
	}

	return e.read()
}

func (t *FileTree) List() []string {
	result := lo.Keys(t.files)
	sort.Strings(result)
	return result
}

func (t *FileTree) Len() int {
	return len(t.files)
}
