package conflicts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refactorproject/autorebase/lib/deltas"
	"github.com/refactorproject/autorebase/lib/model"
)

const cameraOld = `#include <iostream>
#include "nv/camera.h"
static int NvOldAPI(int width, int height) { return width > 0 && height > 0 ? 0 : -1; }
int InitRvcCamera(int width, int height) {
    if (width == 0) width = 1280;
    if (height == 0) height = 720;
    return NvOldAPI(width, height);
}
`

const cameraFeature = `#include <iostream>
#include "nv/camera.h"
static int NvOldAPI(int width, int height) { return width > 0 && height > 0 ? 0 : -1; }
static int clampH(int h) { return h < 480 ? 480 : h; }
int InitRvcCamera(int width, int height) {
    if (width == 0) width = 1344;
    if (height == 0) height = 720;
    height = clampH(height);
    std::cout << "init camera " << width << "x" << height << std::endl;
    return NvOldAPI(width, height);
}
`

const cameraBaseNew = `#include <iostream>
#include "nv/camera2.h"
static int NvNewAPI(int width, int height) { return width > 0 && height > 0 ? 0 : -1; }
int InitRvcCamera(CameraCtx* ctx, int width, int height) {
    if (width == 0) width = 1280;
    if (height == 0) height = 720;
    return NvNewAPI(width, height);
}
`

func TestCameraScenario(t *testing.T) {
	t.Parallel()

	path := "src/vision/camera_pipeline.cpp"
	feature := makeUnit(t, path, cameraOld, cameraFeature)
	base := makeUnit(t, path, cameraOld, cameraBaseNew)

	records, err := NewClassifier().Classify(feature, base)
	assert.Nil(t, err)
	assert.Len(t, records, 3)

	assert.Equal(t, model.HeaderChange, records[0].Category)
	assert.Equal(t, "nv/camera.h", records[0].OldValue)
	assert.Equal(t, "nv/camera2.h", records[0].NewValue)

	assert.Equal(t, model.ApiRename, records[1].Category)
	assert.Equal(t, "NvOldAPI", records[1].OldValue)
	assert.Equal(t, "NvNewAPI", records[1].NewValue)

	assert.Equal(t, model.ParameterChange, records[2].Category)
	assert.Equal(t, "InitRvcCamera(int width, int height)", records[2].OldValue)
	assert.Equal(t, "InitRvcCamera(CameraCtx* ctx, int width, int height)", records[2].NewValue)
}

func TestNilBaseMeansNothingToReconcile(t *testing.T) {
	t.Parallel()

	feature := makeUnit(t, "f.cpp", cameraOld, cameraFeature)

	records, err := NewClassifier().Classify(feature, nil)
	assert.Nil(t, err)
	assert.Empty(t, records)
}

func TestRenameOnlyConflictsWhenFeatureUsesOldName(t *testing.T) {
	t.Parallel()

	// The feature's change sits far enough from Helper that the symbol
	// never shows up in its patch body, not even as context.
	old := "int Helper(int a) { return a; }\n// 2\n// 3\n// 4\n// 5\nint unrelated = 1;\n"
	feature := makeUnit(t, "f.cpp", old, "int Helper(int a) { return a; }\n// 2\n// 3\n// 4\n// 5\nint unrelated = 2;\n")
	base := makeUnit(t, "f.cpp", old, "int Helper2(int a) { return a; }\n// 2\n// 3\n// 4\n// 5\nint unrelated = 1;\n")

	records, err := NewClassifier().Classify(feature, base)
	assert.Nil(t, err)
	assert.Empty(t, records)
}

func TestStructuralMismatch(t *testing.T) {
	t.Parallel()

	feature := makeUnit(t, "f.cpp", "a\nb\n", "a\nB\n")
	base := makeUnit(t, "f.cpp", "a\nb\n", "")

	records, err := NewClassifier().Classify(feature, base)
	assert.Nil(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, model.StructuralChange, records[0].Category)
	assert.Equal(t, "modified", records[0].OldValue)
	assert.Equal(t, "removed", records[0].NewValue)
}

func TestContentOverlap(t *testing.T) {
	t.Parallel()

	old := "a\nshared line\nc\n"
	feature := makeUnit(t, "f.txt", old, "a\nfeature version\nc\n")
	base := makeUnit(t, "f.txt", old, "a\nbase version\nc\n")

	records, err := NewClassifier().Classify(feature, base)
	assert.Nil(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, model.ContentChange, records[0].Category)
	assert.Equal(t, []string{"shared line"}, records[0].Evidence)
}

func TestMalformedPatchBody(t *testing.T) {
	t.Parallel()

	feature := &model.PatchUnit{
		FilePath:     "f.cpp",
		Change:       model.FileModified,
		PatchContent: "not a patch",
	}
	base := makeUnit(t, "f.cpp", "a\n", "b\n")

	_, err := NewClassifier().Classify(feature, base)

	var cerr *ClassificationError
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, "f.cpp", cerr.FilePath)
}

func makeUnit(t *testing.T, path, old, updated string) *model.PatchUnit {
	t.Helper()

	unit := &model.PatchUnit{
		FilePath:     path,
		Change:       model.FileModified,
		PatchContent: deltas.RenderPatch(path, old, updated),
	}

	switch {
	case old == "":
		unit.Change = model.FileAdded
	case updated == "":
		unit.Change = model.FileRemoved
	}

	added, removed, err := deltas.PatchLines(unit.PatchContent)
	assert.Nil(t, err)
	unit.AddedLines = added
	unit.RemovedLines = removed

	return unit
}
