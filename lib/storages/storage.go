package storages

import (
	"github.com/refactorproject/autorebase/lib/model"
)

// Storage is the run audit log: which retargets ran, over which trees,
// with which per-file outcomes.
type Storage interface {
	LoadRuns() ([]*model.Run, error)
	LoadRun(id model.UUID) (*model.Run, error)
	WriteRun(run *model.Run) error

	LoadPatchUnits(runID model.UUID, side string) ([]*model.PatchUnit, error)
	WritePatchUnits(runID model.UUID, side string, units []*model.PatchUnit) error

	LoadConfig() (*map[string]string, error)
	WriteConfig(*map[string]string) error

	Close() error
}

type Factory = func(path string) (Storage, error)

// Sides name the two deltas a run persists.
const (
	SideFeature = "feature"
	SideBase    = "base"
)
