package trees

import (
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/refactorproject/autorebase/lib/utils"
)

// NewGitTree snapshots the tree of one revision of a local git repository.
// The snapshot is loaded into memory, so the worktree state is irrelevant.
func NewGitTree(rootDir string, revision string, opts *Options) (*FileTree, error) {
	if opts == nil {
		opts = &Options{}
	}

	rootDir, err := utils.PathAbs(rootDir)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening git repository at %v", rootDir)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, errors.Wrapf(err, "error resolving revision %v in %v", revision, rootDir)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading commit %v", hash)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	filter, err := newMemFilter(opts)
	if err != nil {
		return nil, err
	}

	result := &FileTree{
		Root:  rootDir + "@" + revision,
		files: map[string]*entry{},
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		if !filter(f.Name) {
			return nil
		}

		binary, err := f.IsBinary()
		if err != nil {
			return err
		}

		contents, err := f.Contents()
		if err != nil {
			return err
		}

		data := []byte(contents)
		result.files[f.Name] = &entry{
			binary: binary,
			read:   func() ([]byte, error) { return data, nil },
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error reading tree of %v", revision)
	}

	return result, nil
}

func newMemFilter(opts *Options) (func(rel string) bool, error) {
	includes, err := compileGlobs(opts.Include)
	if err != nil {
		return nil, err
	}

	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}

	return func(rel string) bool {
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

// Parse splits a tree reference of the form dir or dir@revision.
func Parse(ref string, opts *Options) (*FileTree, error) {
	if i := strings.LastIndex(ref, "@"); i > 0 {
		return NewGitTree(ref[:i], ref[i+1:], opts)
	}

	return NewDirTree(ref, opts)
}
