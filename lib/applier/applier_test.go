package applier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/trees"
)

func TestApply(t *testing.T) {
	t.Parallel()

	baseNew := writeTree(t, map[string]string{
		"untouched.txt": "baseline\n",
		"resolved.txt":  "baseline version\n",
		"conflict.txt":  "baseline version\n",
		"errored.txt":   "baseline version\n",
		"deleted.txt":   "baseline version\n",
	})

	resolved := model.NewResolutionResult("resolved.txt")
	resolved.Status = model.StatusResolved
	resolved.ResolvedContent = lo.ToPtr("merged version\n")

	conflict := model.NewResolutionResult("conflict.txt")
	conflict.Status = model.StatusConflict
	conflict.ResolvedContent = lo.ToPtr("<<<<<<< feature\nmine\n=======\ntheirs\n>>>>>>> base\n")
	conflict.RejectText = "@@ rejected hunk @@\n-a\n+b\n"

	errored := model.NewResolutionResult("errored.txt")
	errored.Status = model.StatusError

	deleted := model.NewResolutionResult("deleted.txt")
	deleted.Status = model.StatusResolved

	output := t.TempDir()
	err := NewApplier(consoles.NewStdOutConsole()).
		Apply([]*model.ResolutionResult{resolved, conflict, errored, deleted}, baseNew, output)
	assert.Nil(t, err)

	assert.Equal(t, "baseline\n", readFile(t, output, "untouched.txt"))
	assert.Equal(t, "merged version\n", readFile(t, output, "resolved.txt"))

	assert.Contains(t, readFile(t, output, "conflict.txt"), "<<<<<<< feature")
	assert.Equal(t, "@@ rejected hunk @@\n-a\n+b\n", readFile(t, output, "conflict.txt"+RejectSuffix))

	// Errors leave nothing behind for that path.
	assert.NoFileExists(t, filepath.Join(output, "errored.txt"))

	// Deletions carried by the feature stay deleted.
	assert.NoFileExists(t, filepath.Join(output, "deleted.txt"))
}

func TestApplyCreatesNestedDirs(t *testing.T) {
	t.Parallel()

	baseNew := writeTree(t, map[string]string{
		"src/vision/camera_pipeline.cpp": "content\n",
	})

	output := t.TempDir()
	err := NewApplier(consoles.NewStdOutConsole()).Apply(nil, baseNew, output)
	assert.Nil(t, err)

	assert.Equal(t, "content\n", readFile(t, output, "src/vision/camera_pipeline.cpp"))
}

func TestApplyLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	baseNew := writeTree(t, map[string]string{
		"a.txt": "1\n",
		"b.txt": "2\n",
	})

	output := t.TempDir()
	err := NewApplier(consoles.NewStdOutConsole()).Apply(nil, baseNew, output)
	assert.Nil(t, err)

	entries, err := os.ReadDir(output)
	assert.Nil(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".autorebase-")
	}
}

func TestApplyIOFailureDowngradesResult(t *testing.T) {
	t.Parallel()

	baseNew := writeTree(t, map[string]string{})

	result := model.NewResolutionResult("blocked/file.txt")
	result.Status = model.StatusResolved
	result.ResolvedContent = lo.ToPtr("content\n")

	output := t.TempDir()

	// A plain file where the parent directory should go makes every
	// write attempt fail.
	assert.Nil(t, os.WriteFile(filepath.Join(output, "blocked"), []byte("in the way"), 0o644))

	err := NewApplier(consoles.NewStdOutConsole()).
		Apply([]*model.ResolutionResult{result}, baseNew, output)
	assert.Nil(t, err)

	assert.Equal(t, model.StatusError, result.Status)
	assert.NotEmpty(t, result.Diagnostics)
}

func writeTree(t *testing.T, files map[string]string) *trees.FileTree {
	t.Helper()

	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		assert.Nil(t, os.MkdirAll(filepath.Dir(full), 0o755))
		assert.Nil(t, os.WriteFile(full, []byte(content), 0o644))
	}

	tree, err := trees.NewDirTree(root, nil)
	assert.Nil(t, err)
	return tree
}

func readFile(t *testing.T, root, path string) string {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	assert.Nil(t, err)
	return string(content)
}
