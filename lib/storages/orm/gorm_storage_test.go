package orm

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refactorproject/autorebase/lib/consoles"
	"github.com/refactorproject/autorebase/lib/model"
	"github.com/refactorproject/autorebase/lib/storages"
)

func TestEqualsEmpty(t *testing.T) {
	t.Parallel()

	r1 := &sqlRun{}
	r2 := &sqlRun{}

	assert.True(t, reflect.DeepEqual(r1, r2))

	r1.OutputRoot = "/tmp/out"
	assert.False(t, reflect.DeepEqual(r1, r2))
}

func TestRunRoundTrip(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	run := model.NewRun("/old", "/new", "/feature", "reqmap.yaml", "/out")
	run.Summary = model.RunSummary{TotalFiles: 2, Resolved: 1, Conflicts: 1, Semantic: 1}

	resolved := model.NewResolutionResult("src/vision/camera_pipeline.cpp")
	resolved.Status = model.StatusResolved
	resolved.Method = model.MethodHeuristic
	resolved.Confidence = 0.75
	resolved.Conflicts = []model.ConflictRecord{
		{Category: model.ApiRename, OldValue: "NvOldAPI", NewValue: "NvNewAPI"},
	}
	resolved.ReqIDs = []string{"REQ-CAM-1"}

	conflicted := model.NewResolutionResult("src/other.cpp")
	conflicted.Status = model.StatusConflict
	conflicted.RejectText = "@@ rejected hunk @@\n-a\n+b\n"

	run.Results = []*model.ResolutionResult{resolved, conflicted}

	assert.Nil(t, storage.WriteRun(run))

	runs, err := storage.LoadRuns()
	assert.Nil(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, run.Summary, runs[0].Summary)

	loaded, err := storage.LoadRun(run.ID)
	assert.Nil(t, err)
	assert.Equal(t, run.CreatedAt.Unix(), loaded.CreatedAt.Unix())
	assert.Len(t, loaded.Results, 2)

	// Sorted by path on load.
	assert.Equal(t, "src/other.cpp", loaded.Results[0].FilePath)
	assert.Equal(t, conflicted.RejectText, loaded.Results[0].RejectText)

	assert.Equal(t, resolved.Conflicts, loaded.Results[1].Conflicts)
	assert.Equal(t, resolved.ReqIDs, loaded.Results[1].ReqIDs)
	assert.Equal(t, 0.75, loaded.Results[1].Confidence)
}

func TestWriteRunIsIdempotent(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	run := model.NewRun("/old", "/new", "/feature", "", "/out")

	assert.Nil(t, storage.WriteRun(run))
	assert.Nil(t, storage.WriteRun(run))

	runs, err := storage.LoadRuns()
	assert.Nil(t, err)
	assert.Len(t, runs, 1)
}

func TestPatchUnitRoundTrip(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	run := model.NewRun("/old", "/new", "/feature", "", "/out")
	assert.Nil(t, storage.WriteRun(run))

	units := []*model.PatchUnit{
		{
			FilePath:     "src/vision/camera_pipeline.cpp",
			Change:       model.FileModified,
			PatchContent: "@@ -1,1 +1,1 @@\n-a\n+b\n",
			AddedLines:   []string{"b"},
			RemovedLines: []string{"a"},
			ReqIDs:       []string{"REQ-CAM-1"},
		},
		{
			FilePath: "logo.bin",
			Change:   model.FileAdded,
			Binary:   true,
		},
	}

	assert.Nil(t, storage.WritePatchUnits(run.ID, storages.SideFeature, units))

	loaded, err := storage.LoadPatchUnits(run.ID, storages.SideFeature)
	assert.Nil(t, err)
	assert.Len(t, loaded, 2)

	// Sorted by path on load.
	assert.Equal(t, "logo.bin", loaded[0].FilePath)
	assert.True(t, loaded[0].Binary)
	assert.Equal(t, model.FileAdded, loaded[0].Change)

	assert.Equal(t, units[0].PatchContent, loaded[1].PatchContent)
	assert.Equal(t, units[0].AddedLines, loaded[1].AddedLines)
	assert.Equal(t, units[0].ReqIDs, loaded[1].ReqIDs)

	other, err := storage.LoadPatchUnits(run.ID, storages.SideBase)
	assert.Nil(t, err)
	assert.Empty(t, other)
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()

	storage := newTestStorage(t)

	cfg, err := storage.LoadConfig()
	assert.Nil(t, err)
	assert.Empty(t, *cfg)

	(*cfg)["workers"] = "4"
	assert.Nil(t, storage.WriteConfig(cfg))

	loaded, err := storage.LoadConfig()
	assert.Nil(t, err)
	assert.Equal(t, "4", (*loaded)["workers"])
}

func newTestStorage(t *testing.T) storages.Storage {
	t.Helper()

	storage, err := NewGormStorage(WithSqliteInMemory(), consoles.NewStdOutConsole())
	assert.Nil(t, err)

	t.Cleanup(func() { _ = storage.Close() })

	return storage
}
