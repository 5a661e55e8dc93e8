package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refactorproject/autorebase/lib/trees"
)

func TestCleanTree(t *testing.T) {
	t.Parallel()

	report, err := Scan(writeTree(t, map[string]string{
		"a.txt":     "clean\n",
		"b/c.txt":   "also clean\n",
		"format.md": "<<< this is not a marker\n",
	}))

	assert.Nil(t, err)
	assert.True(t, report.Clean())
}

func TestFindsRejectArtifacts(t *testing.T) {
	t.Parallel()

	report, err := Scan(writeTree(t, map[string]string{
		"a.txt":     "clean\n",
		"a.txt.rej": "@@ rejected hunk @@\n-x\n+y\n",
	}))

	assert.Nil(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []string{"a.txt.rej"}, report.RejectFiles)
	assert.Empty(t, report.MarkedFiles)
}

func TestFindsConflictMarkers(t *testing.T) {
	t.Parallel()

	report, err := Scan(writeTree(t, map[string]string{
		"merged.cpp": "ok\n<<<<<<< feature\nmine\n=======\ntheirs\n>>>>>>> base\nok\n",
	}))

	assert.Nil(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, []string{"merged.cpp"}, report.MarkedFiles)
}

func TestUnbalancedMarkersAreNotConflicts(t *testing.T) {
	t.Parallel()

	report, err := Scan(writeTree(t, map[string]string{
		"doc.md": "<<<<<<< just one side mentioned in prose\n",
	}))

	assert.Nil(t, err)
	assert.True(t, report.Clean())
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
