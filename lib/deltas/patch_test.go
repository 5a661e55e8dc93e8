package deltas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const cameraOld = `#include <iostream>
#include "nv/camera.h"
static int NvOldAPI(int width, int height) { return width > 0 && height > 0 ? 0 : -1; }
int InitRvcCamera(int width, int height) {
    if (width == 0) width = 1280;
    if (height == 0) height = 720;
    return NvOldAPI(width, height);
}
int main() {
    int rc = InitRvcCamera(0, 0);
    return rc == 0 ? 0 : 1;
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
int main() {
    int rc = InitRvcCamera(0, 0);
    return rc == 0 ? 0 : 1;
}
`

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	patch := RenderPatch("src/vision/camera_pipeline.cpp", cameraOld, cameraFeature)
	assert.NotEmpty(t, patch)

	applied, err := ApplyPatch(cameraOld, patch)
	assert.Nil(t, err)
	assert.Equal(t, cameraFeature, applied)
}

func TestRoundTripWithoutFinalNewline(t *testing.T) {
	t.Parallel()

	old := "a\nb\nc"
	modified := "a\nB\nc"

	patch := RenderPatch("f.txt", old, modified)
	assert.Contains(t, patch, `\ No newline at end of file`)

	applied, err := ApplyPatch(old, patch)
	assert.Nil(t, err)
	assert.Equal(t, modified, applied)
}

func TestRoundTripAddedFile(t *testing.T) {
	t.Parallel()

	patch := RenderPatch("f.txt", "", "a\nb\n")

	applied, err := ApplyPatch("", patch)
	assert.Nil(t, err)
	assert.Equal(t, "a\nb\n", applied)
}

func TestRoundTripRemovedFile(t *testing.T) {
	t.Parallel()

	patch := RenderPatch("f.txt", "a\nb\n", "")

	applied, err := ApplyPatch("a\nb\n", patch)
	assert.Nil(t, err)
	assert.Equal(t, "", applied)
}

func TestEqualContentsRenderNothing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", RenderPatch("f.txt", cameraOld, cameraOld))
}

func TestSeparatedChangesMakeSeparateHunks(t *testing.T) {
	t.Parallel()

	old := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\n14\n15\n"
	modified := "1\nX\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\nY\n15\n"

	patch := RenderPatch("f.txt", old, modified)
	assert.Equal(t, 2, countHunks(patch))

	applied, err := ApplyPatch(old, patch)
	assert.Nil(t, err)
	assert.Equal(t, modified, applied)
}

func TestApplyDetectsContextMismatch(t *testing.T) {
	t.Parallel()

	patch := RenderPatch("f.txt", "a\nb\nc\n", "a\nB\nc\n")

	_, err := ApplyPatch("a\nx\nc\n", patch)
	assert.ErrorContains(t, err, "context mismatch")
}

func TestPatchLines(t *testing.T) {
	t.Parallel()

	patch := RenderPatch("src/vision/camera_pipeline.cpp", cameraOld, cameraFeature)

	added, removed, err := PatchLines(patch)
	assert.Nil(t, err)

	assert.Contains(t, added, "    if (width == 0) width = 1344;")
	assert.Contains(t, added, "    height = clampH(height);")
	assert.Contains(t, removed, "    if (width == 0) width = 1280;")
}

func countHunks(patch string) int {
	hunks, _ := parsePatch(patch)
	return len(hunks)
}
